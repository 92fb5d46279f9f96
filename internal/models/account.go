package models

import (
	"CasinoApi/cmd/db"
	"CasinoApi/pkg/logger"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAccountNotFound     = errors.New("account not found")
	ErrNicknameTaken       = errors.New("nickname already taken")
)

type Account struct {
	ID         int64  `gorm:"primaryKey,autoIncrement"`
	Nickname   string `gorm:"unique"`
	AvatarID   int
	Balance    float64
	LifetimeXP float64
	Level      int `gorm:"default:1"`
	CreatedAt  time.Time
	Password   string `json:"-"`
}

func CheckIfAccountExistsByID(tx *gorm.DB, accountID int64) (bool, error) {
	if tx == nil {
		tx = db.DB
	}

	var exists bool
	err := tx.Model(&Account{}).
		Select("count(*) > 0").
		Where("id = ?", accountID).
		Scan(&exists).Error
	if err != nil {
		return true, logger.WrapError(err, "")
	}

	return exists, nil
}

func GetAccountWithPassword(tx *gorm.DB, nickname string) (*Account, error) {
	if tx == nil {
		tx = db.DB
	}

	var account Account
	err := tx.Where("nickname = ?", nickname).First(&account).Error
	if err != nil {
		return nil, logger.WrapError(err, "")
	}

	return &account, nil
}

func CheckIfAccountExistsByNickname(tx *gorm.DB, nn string) (bool, error) {
	if tx == nil {
		tx = db.DB
	}

	var exists bool
	err := tx.Model(&Account{}).
		Select("count(*) > 0").
		Where("nickname = ?", nn).
		Scan(&exists).Error
	if err != nil {
		return true, logger.WrapError(err, "")
	}

	return exists, nil
}

// DebitBalance deducts stake from an account in a single conditional UPDATE.
// The balance >= stake guard runs inside the statement, so two concurrent
// debits can never push the balance negative. ErrInsufficientBalance is
// returned when the guard rejects the row.
func DebitBalance(tx *gorm.DB, accountID int64, stake float64) error {
	if tx == nil {
		tx = db.DB
	}

	res := tx.Model(&Account{}).
		Where("id = ? AND balance >= ?", accountID, stake).
		Update("balance", gorm.Expr("balance - ?", stake))
	if res.Error != nil {
		return logger.WrapError(res.Error, "")
	}
	if res.RowsAffected == 0 {
		exists, err := CheckIfAccountExistsByID(tx, accountID)
		if err != nil {
			return logger.WrapError(err, "")
		}
		if !exists {
			return ErrAccountNotFound
		}
		return ErrInsufficientBalance
	}

	return nil
}

// CreditBalance adds payout to an account atomically. Settlement and tipping
// both go through here, never through read-modify-write at the caller.
func CreditBalance(tx *gorm.DB, accountID int64, payout float64) error {
	if tx == nil {
		tx = db.DB
	}

	res := tx.Model(&Account{}).
		Where("id = ?", accountID).
		Update("balance", gorm.Expr("balance + ?", payout))
	if res.Error != nil {
		return logger.WrapError(res.Error, "")
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// AddXP accrues lifetime XP atomically and bumps the denormalized level.
// Level is recomputed from the post-increment XP; the `level < ?` guard
// keeps it monotonic when settlements of different rounds interleave.
func AddXP(tx *gorm.DB, accountID int64, xp float64) error {
	if tx == nil {
		tx = db.DB
	}

	res := tx.Model(&Account{}).
		Where("id = ?", accountID).
		Update("lifetime_xp", gorm.Expr("lifetime_xp + ?", xp))
	if res.Error != nil {
		return logger.WrapError(res.Error, "")
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}

	var lifetimeXP float64
	if err := tx.Model(&Account{}).
		Where("id = ?", accountID).
		Pluck("lifetime_xp", &lifetimeXP).Error; err != nil {
		return logger.WrapError(err, "")
	}

	newLevel := LevelForXP(lifetimeXP)
	if err := tx.Model(&Account{}).
		Where("id = ? AND level < ?", accountID, newLevel).
		Update("level", newLevel).Error; err != nil {
		return logger.WrapError(err, "")
	}

	return nil
}

func GetBalance(tx *gorm.DB, accountID int64) (float64, error) {
	if tx == nil {
		tx = db.DB
	}

	var account Account
	if err := tx.Select("balance").First(&account, accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrAccountNotFound
		}
		return 0, logger.WrapError(err, "")
	}

	return account.Balance, nil
}

func GetLevelStats(tx *gorm.DB, accountID int64) (LevelStats, error) {
	if tx == nil {
		tx = db.DB
	}

	var account Account
	if err := tx.Select("lifetime_xp").First(&account, accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LevelStats{}, ErrAccountNotFound
		}
		return LevelStats{}, logger.WrapError(err, "")
	}

	return LevelStatsForXP(account.LifetimeXP), nil
}
