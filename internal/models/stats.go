package models

import (
	"CasinoApi/cmd/db"
	"CasinoApi/pkg/logger"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GameStats is the per-game aggregate row for one account. It is denormalized
// from settled bets and only ever mutated inside the per-bet settlement
// transaction, so it stays consistent with the history records.
type GameStats struct {
	ID             int64  `gorm:"primaryKey,autoIncrement"`
	AccountID      int64  `gorm:"uniqueIndex:idx_stats_account_game"`
	Game           string `gorm:"uniqueIndex:idx_stats_account_game"`
	GamesPlayed    int64
	Wins           int64
	Wagered        float64
	Profit         float64
	BestMultiplier float64
	CurrentStreak  int
	BestStreak     int
}

// BumpGameStats upserts the aggregate row for one settled bet. All counters
// are updated in a single statement with the pre-update column values, so
// concurrent settlements for the same account cannot lose increments.
func BumpGameStats(tx *gorm.DB, accountID int64, game string, won bool, stake, profit, multiplier float64) error {
	if tx == nil {
		tx = db.DB
	}

	wins := int64(0)
	if won {
		wins = 1
	}

	row := GameStats{
		AccountID:     accountID,
		Game:          game,
		GamesPlayed:   1,
		Wins:          wins,
		Wagered:       stake,
		Profit:        profit,
		CurrentStreak: int(wins),
		BestStreak:    int(wins),
	}
	if won {
		row.BestMultiplier = multiplier
	}

	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}, {Name: "game"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"games_played": gorm.Expr("games_played + 1"),
			"wins":         gorm.Expr("wins + ?", wins),
			"wagered":      gorm.Expr("wagered + ?", stake),
			"profit":       gorm.Expr("profit + ?", profit),
			"best_multiplier": gorm.Expr(
				"CASE WHEN ? > best_multiplier THEN ? ELSE best_multiplier END",
				row.BestMultiplier, row.BestMultiplier),
			"current_streak": gorm.Expr(
				"CASE WHEN ? THEN current_streak + 1 ELSE 0 END", won),
			"best_streak": gorm.Expr(
				"CASE WHEN ? AND current_streak + 1 > best_streak THEN current_streak + 1 ELSE best_streak END", won),
		}),
	}).Create(&row).Error
	if err != nil {
		return logger.WrapError(err, "")
	}

	return nil
}

func GetGameStats(tx *gorm.DB, accountID int64) ([]GameStats, error) {
	if tx == nil {
		tx = db.DB
	}

	var stats []GameStats
	err := tx.Where("account_id = ?", accountID).Order("game").Find(&stats).Error
	if err != nil {
		return nil, logger.WrapError(err, "")
	}

	return stats, nil
}
