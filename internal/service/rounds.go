package service

import (
	"CasinoApi/internal/fair"
	"CasinoApi/internal/games"
	"CasinoApi/internal/models"
	"CasinoApi/internal/settle"
	"CasinoApi/pkg/logger"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
)

var engine *settle.Engine

func InitRoundService(e *settle.Engine) {
	engine = e
}

type RoundInfo struct {
	RoundID        string             `json:"round_id"`
	Game           string             `json:"game"`
	Number         int64              `json:"number"`
	Status         models.RoundStatus `json:"status"`
	SeedCommitment string             `json:"seed_commitment"`
	CreatedAt      time.Time          `json:"created_at"`
	LockedAt       *time.Time         `json:"locked_at,omitempty"`
	ResolvedAt     *time.Time         `json:"resolved_at,omitempty"`
}

func roundInfo(r *models.Round) RoundInfo {
	return RoundInfo{
		RoundID:        r.PublicID,
		Game:           r.Game,
		Number:         r.Number,
		Status:         r.Status,
		SeedCommitment: r.SeedCommitment,
		CreatedAt:      r.CreatedAt,
		LockedAt:       r.LockedAt,
		ResolvedAt:     r.ResolvedAt,
	}
}

// GetCurrentRound handles GET games/:game/round: the round currently taking
// bets (or being resolved), opening one when the game is idle.
func GetCurrentRound(c *gin.Context) {
	game, err := games.Lookup(c.Param("game"))
	if err != nil {
		c.JSON(404, gin.H{"error": "Unknown game"})
		return
	}

	round, err := settle.GetOrCreateCurrentRound(nil, game.Name())
	if errors.Is(err, settle.ErrRoundCreationBlocked) {
		c.JSON(403, gin.H{"error": "Game temporarily unavailable"})
		return
	}
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	c.JSON(200, roundInfo(round))
}

func lookupRoundParam(c *gin.Context) (*models.Round, bool) {
	round, err := models.GetRoundByPublicID(nil, c.Param("id"))
	if errors.Is(err, models.ErrRoundNotFound) {
		c.JSON(404, gin.H{"error": "Round not found"})
		return nil, false
	}
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return nil, false
	}
	return round, true
}

// ResolveRound handles POST rounds/:id/resolve. Safe to call repeatedly: the
// outcome is derived deterministically from the committed seed, so every
// call reports the same result.
func ResolveRound(c *gin.Context) {
	round, ok := lookupRoundParam(c)
	if !ok {
		return
	}

	outcome, err := engine.Resolve(c.Request.Context(), round.ID)
	if errors.Is(err, settle.ErrRoundNotLocked) {
		c.JSON(409, gin.H{"error": "Round still taking bets"})
		return
	}
	if errors.Is(err, settle.ErrRoundFailed) {
		c.JSON(409, gin.H{"error": "Round requires operator attention"})
		return
	}
	if err != nil {
		logger.Error("%v", err)
		c.Status(500)
		return
	}

	c.JSON(200, gin.H{"round_id": round.PublicID, "outcome": outcome})
}

// SettleRound handles POST rounds/:id/settle. Settling a resolved round
// returns the stored summary; racing callers all end up with the same one.
func SettleRound(c *gin.Context) {
	round, ok := lookupRoundParam(c)
	if !ok {
		return
	}

	summary, err := engine.Settle(c.Request.Context(), round.ID)
	switch {
	case err == nil:
		c.JSON(200, summary)
	case errors.Is(err, settle.ErrRoundNotLocked):
		c.JSON(409, gin.H{"error": "Round still taking bets"})
	case errors.Is(err, settle.ErrRoundFailed):
		c.JSON(409, gin.H{"error": "Round requires operator attention"})
	case errors.Is(err, settle.ErrSettlementInProgress):
		c.JSON(202, gin.H{"status": "settlement in progress"})
	default:
		logger.Error("%v", err)
		c.Status(500)
	}
}

type FairnessProof struct {
	RoundID        string `json:"round_id"`
	SeedCommitment string `json:"seed_commitment"`
	ServerSeed     string `json:"server_seed,omitempty"`
	Nonce          string `json:"nonce,omitempty"`
	Verified       bool   `json:"verified"`
}

// GetRoundFairness handles GET rounds/:id/fairness. The server seed is
// revealed only after the round resolves; until then the proof carries the
// commitment alone.
func GetRoundFairness(c *gin.Context) {
	round, ok := lookupRoundParam(c)
	if !ok {
		return
	}

	proof := FairnessProof{
		RoundID:        round.PublicID,
		SeedCommitment: round.SeedCommitment,
		Nonce:          round.Nonce,
	}
	if round.Status == models.RoundResolved {
		proof.ServerSeed = round.ServerSeed
		proof.Verified = fair.Verify(round.SeedCommitment, round.ServerSeed)
	}

	c.JSON(200, proof)
}
