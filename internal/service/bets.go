package service

import (
	"CasinoApi/cmd/db"
	"CasinoApi/internal/games"
	"CasinoApi/internal/middleware"
	"CasinoApi/internal/models"
	"CasinoApi/internal/settle"
	"CasinoApi/pkg/cache"
	"CasinoApi/pkg/logger"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const betCooldown = 500 * time.Millisecond

// betCache is optional; without Redis placement just skips the cooldown.
var betCache *cache.Cache

func InitBetService(c *cache.Cache) {
	betCache = c
}

type PlaceBetInput struct {
	Amount     float64 `json:"amount" validate:"required,gt=0"`
	Selection  string  `json:"selection" validate:"required,max=16"`
	Target     float64 `json:"target" validate:"omitempty,gte=0"`
	ClientSeed string  `json:"client_seed" validate:"omitempty,printascii,max=64"`
}

type PlaceBetResult struct {
	BetID           int64   `json:"bet_id"`
	RoundID         string  `json:"round_id"`
	RoundNumber     int64   `json:"round_number"`
	SeedCommitment  string  `json:"seed_commitment"`
	Stake           float64 `json:"stake"`
	PotentialPayout float64 `json:"potential_payout"`
	Balance         float64 `json:"balance"`
}

// PlaceBet handles POST games/:game/place. The stake leaves the balance
// here, inside one transaction with the bet row; settlement later credits
// winnings.
func PlaceBet(c *gin.Context) {
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

	var input PlaceBetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Status(400)
		return
	}
	if err := validate.Struct(input); err != nil {
		c.Status(400)
		return
	}
	if err := game.ValidateBet(input.Selection, input.Target); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	if betCache != nil {
		key := fmt.Sprintf("bets:cooldown:%d:%s", userID, game.Name())
		ok, err := betCache.Acquire(c.Request.Context(), key, betCooldown)
		if err != nil {
			logger.Error("%v", err)
		} else if !ok {
			c.JSON(429, gin.H{"error": "Too many bets"})
			return
		}
	}

	var result PlaceBetResult
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		round, err := settle.GetOrCreateCurrentRound(tx, game.Name())
		if err != nil {
			return err
		}

		// re-read under a row lock so a concurrent Lock cannot slip a bet
		// into a closed round
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(round, round.ID).Error; err != nil {
			return logger.WrapError(err, "")
		}
		if round.Status != models.RoundOpen {
			return models.ErrRoundNotOpen
		}

		if input.ClientSeed != "" && round.Nonce == "" {
			if err := tx.Model(round).Update("nonce", input.ClientSeed).Error; err != nil {
				return logger.WrapError(err, "")
			}
		}

		if err := models.DebitBalance(tx, userID, input.Amount); err != nil {
			return err
		}

		potential := math.Round(input.Amount*game.PotentialMultiplier(input.Selection, input.Target)*100) / 100
		bet := models.Bet{
			AccountID:       userID,
			RoundID:         round.ID,
			Game:            game.Name(),
			Stake:           input.Amount,
			Selection:       input.Selection,
			Target:          input.Target,
			PotentialPayout: potential,
			Status:          models.BetStatusActive,
		}
		if err := tx.Create(&bet).Error; err != nil {
			return logger.WrapError(err, "")
		}

		balance, err := models.GetBalance(tx, userID)
		if err != nil {
			return err
		}

		result = PlaceBetResult{
			BetID:           bet.ID,
			RoundID:         round.PublicID,
			RoundNumber:     round.Number,
			SeedCommitment:  round.SeedCommitment,
			Stake:           bet.Stake,
			PotentialPayout: bet.PotentialPayout,
			Balance:         balance,
		}
		return nil
	})

	switch {
	case err == nil:
		c.JSON(200, result)
	case errors.Is(err, models.ErrInsufficientBalance):
		c.JSON(402, gin.H{"error": "Insufficient balance"})
	case errors.Is(err, models.ErrRoundNotOpen):
		c.JSON(409, gin.H{"error": "Betting window closed"})
	case errors.Is(err, settle.ErrRoundCreationBlocked):
		c.JSON(403, gin.H{"error": "Game temporarily unavailable"})
	default:
		logger.Error("%v", err)
		c.Status(500)
	}
}
