package service

import (
	"CasinoApi/internal/games"
	"CasinoApi/internal/middleware"
	"CasinoApi/internal/models"
	"CasinoApi/pkg/logger"
	"errors"

	"github.com/gin-gonic/gin"
)

func GetUserBalance(c *gin.Context) {
	userID, err := middleware.GetUserIDFromGinContext(c)
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	balance, err := models.GetBalance(nil, userID)
	if errors.Is(err, models.ErrAccountNotFound) {
		c.JSON(404, gin.H{"error": "Account not found"})
		return
	}
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	c.JSON(200, gin.H{"balance": balance})
}

func GetUserLevel(c *gin.Context) {
	userID, err := middleware.GetUserIDFromGinContext(c)
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	stats, err := models.GetLevelStats(nil, userID)
	if errors.Is(err, models.ErrAccountNotFound) {
		c.JSON(404, gin.H{"error": "Account not found"})
		return
	}
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	c.JSON(200, stats)
}

func GetUserGameStats(c *gin.Context) {
	userID, err := middleware.GetUserIDFromGinContext(c)
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	stats, err := models.GetGameStats(nil, userID)
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	c.JSON(200, stats)
}

func GetUserGameHistory(c *gin.Context) {
	userID, err := middleware.GetUserIDFromGinContext(c)
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	game, err := games.Lookup(c.Param("game"))
	if err != nil {
		c.JSON(404, gin.H{"error": "Unknown game"})
		return
	}

	history, err := models.GetRecentGameHistory(nil, userID, game.Name())
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	c.JSON(200, history)
}
