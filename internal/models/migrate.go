package models

import (
	"CasinoApi/cmd/db"
	"CasinoApi/pkg/logger"

	"gorm.io/gorm"
)

// Migrate creates or updates the ledger schema.
func Migrate(tx *gorm.DB) error {
	if tx == nil {
		tx = db.DB
	}

	err := tx.AutoMigrate(
		&Account{},
		&GameStats{},
		&Round{},
		&Bet{},
		&GameHistory{},
	)
	if err != nil {
		return logger.WrapError(err, "")
	}

	return nil
}
