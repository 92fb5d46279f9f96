package models

import (
	"CasinoApi/cmd/db"
	"CasinoApi/pkg/logger"
	"time"

	"gorm.io/gorm"
)

// GameHistory is the append-only audit record written once per settled bet.
// Rows are never updated; together with the round's revealed seed they let
// anyone replay a settlement after the fact.
type GameHistory struct {
	ID          int64  `gorm:"primaryKey,autoIncrement"`
	AccountID   int64  `gorm:"index"`
	RoundID     int64  `gorm:"index"`
	Game        string `gorm:"index"`
	Stake       float64
	Payout      float64
	Profit      float64
	Outcome     string // "win" / "lose"
	DetailsJSON string // game-specific outcome descriptor
	CreatedAt   time.Time
}

func AppendGameHistory(tx *gorm.DB, record *GameHistory) error {
	if tx == nil {
		tx = db.DB
	}

	record.CreatedAt = time.Now()
	if err := tx.Create(record).Error; err != nil {
		return logger.WrapError(err, "")
	}

	return nil
}

// GetRecentGameHistory fetches the latest 20 records for the account. The
// table itself is never trimmed here: the full trail stays intact for audit
// and fairness replay, retention is an operator concern.
func GetRecentGameHistory(tx *gorm.DB, accountID int64, game string) ([]GameHistory, error) {
	if tx == nil {
		tx = db.DB
	}

	var history []GameHistory
	err := tx.Where("account_id = ? AND game = ?", accountID, game).
		Order("created_at desc").Limit(20).Find(&history).Error
	if err != nil {
		return nil, logger.WrapError(err, "")
	}

	return history, nil
}
