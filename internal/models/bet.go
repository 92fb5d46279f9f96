package models

import (
	"CasinoApi/cmd/db"
	"CasinoApi/pkg/logger"
	"time"

	"gorm.io/gorm"
)

const (
	BetStatusActive = "active"
	BetStatusWon    = "won"
	BetStatusLost   = "lost"
)

// Bet is one stake placed against a round. The stake is deducted from the
// account balance at placement time, so a losing bet settles with no further
// balance change and a winning one is credited stake * multiplier. Stake and
// selection are immutable after placement; Payout/Profit stay zero until the
// settlement engine fills them, exactly once.
type Bet struct {
	ID              int64  `gorm:"primaryKey,autoIncrement"`
	AccountID       int64  `gorm:"index;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	RoundID         int64  `gorm:"index;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Game            string `gorm:"index"`
	Stake           float64
	Selection       string
	Target          float64 // game-specific: crash auto-cashout, tower row
	PotentialPayout float64
	Status          string `gorm:"index;default:active"`
	Payout          float64
	Profit          float64
	CreatedAt       time.Time
	SettledAt       *time.Time
}

// ActiveBetsForRound returns the bets the settlement pass still has to
// process. Bets already settled by an earlier, partially-failed pass are
// excluded, which is what makes a settlement retry idempotent per bet.
func ActiveBetsForRound(tx *gorm.DB, roundID int64) ([]Bet, error) {
	if tx == nil {
		tx = db.DB
	}

	var bets []Bet
	err := tx.Where("round_id = ? AND status = ?", roundID, BetStatusActive).
		Order("id").
		Find(&bets).Error
	if err != nil {
		return nil, logger.WrapError(err, "")
	}

	return bets, nil
}

// SettledBetsForRound returns all settled bets of a round, used to rebuild
// the settlement summary on idempotent re-invocation.
func SettledBetsForRound(tx *gorm.DB, roundID int64) ([]Bet, error) {
	if tx == nil {
		tx = db.DB
	}

	var bets []Bet
	err := tx.Where("round_id = ? AND status IN ?", roundID,
		[]string{BetStatusWon, BetStatusLost}).
		Order("id").
		Find(&bets).Error
	if err != nil {
		return nil, logger.WrapError(err, "")
	}

	return bets, nil
}

// MarkSettled writes the settlement result onto the bet. Conditional on the
// bet still being active: a bet can be settled at most once even if two
// passes overlap on a stale claim takeover.
func (b *Bet) MarkSettled(tx *gorm.DB, won bool, payout, profit float64) error {
	if tx == nil {
		tx = db.DB
	}

	status := BetStatusLost
	if won {
		status = BetStatusWon
	}

	now := time.Now()
	res := tx.Model(&Bet{}).
		Where("id = ? AND status = ?", b.ID, BetStatusActive).
		Updates(map[string]interface{}{
			"status":     status,
			"payout":     payout,
			"profit":     profit,
			"settled_at": now,
		})
	if res.Error != nil {
		return logger.WrapError(res.Error, "")
	}
	if res.RowsAffected == 0 {
		return logger.WrapError(gorm.ErrRecordNotFound, "bet already settled")
	}

	b.Status = status
	b.Payout = payout
	b.Profit = profit
	b.SettledAt = &now
	return nil
}
