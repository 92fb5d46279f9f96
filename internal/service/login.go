package service

import (
	"CasinoApi/cmd/db"
	"CasinoApi/internal/middleware"
	"CasinoApi/internal/models"
	"CasinoApi/pkg/logger"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const AccessExpirationHours = 10

type Token struct {
	AccessToken string `json:"access_token"`
}

type Login struct {
	Nickname string `json:"nickname" validate:"required,min=3,max=32"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

func SignUp(c *gin.Context) {
	var req Login
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid data"})
		return
	}
	if err := validate.Struct(req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid data"})
		return
	}

	hash, err := middleware.HashPassword(req.Password)
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	var account models.Account
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		exists, err := models.CheckIfAccountExistsByNickname(tx, req.Nickname)
		if err != nil {
			return logger.WrapError(err, "")
		}
		if exists {
			return models.ErrNicknameTaken
		}

		account = models.Account{
			Nickname: req.Nickname,
			Password: hash,
		}
		if err := tx.Create(&account).Error; err != nil {
			return logger.WrapError(err, "")
		}
		return nil
	})
	if err == models.ErrNicknameTaken {
		c.JSON(409, gin.H{"error": "Nickname already taken"})
		return
	}
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	issueToken(c, account.ID)
}

func AuthLogin(c *gin.Context) {
	var req Login
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid data"})
		return
	}

	account, err := models.GetAccountWithPassword(nil, req.Nickname)
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid data"})
		return
	}

	if !middleware.ComparePasswords(account.Password, req.Password) {
		c.JSON(400, gin.H{"error": "Invalid data"})
		return
	}

	issueToken(c, account.ID)
}

func issueToken(c *gin.Context, accountID int64) {
	accessExpiration := time.Now().Unix() + int64(AccessExpirationHours*60*60)

	access, err := middleware.TokenNew(middleware.JWTKey(), accountID,
		accessExpiration, middleware.TokenAccess)
	if err != nil {
		logger.Error("%v", err)
		c.AbortWithStatus(500)
		return
	}

	c.JSON(200, Token{AccessToken: access})
}
