package models

import (
	"CasinoApi/cmd/db"
	"CasinoApi/pkg/logger"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RoundStatus string

const (
	RoundOpen      RoundStatus = "open"
	RoundLocked    RoundStatus = "locked"
	RoundResolving RoundStatus = "resolving"
	RoundResolved  RoundStatus = "resolved"
	// RoundFailed marks a round whose resolution could not complete. It
	// blocks new-round creation for the game until an operator clears it.
	RoundFailed RoundStatus = "failed"
)

var (
	ErrRoundNotOpen         = errors.New("round is not open for bets")
	ErrRoundNotFound        = errors.New("round not found")
	ErrRoundAlreadyResolved = errors.New("round already resolved")
	ErrSettlementClaimed    = errors.New("round settlement claimed by another caller")
)

// Round is one game instance. The outcome columns stay zero until the round
// reaches resolved and are immutable afterwards. ServerSeed is only revealed
// (stored in plain form it always was, but surfaced) after resolution;
// SeedCommitment is published the moment the round opens.
type Round struct {
	ID             int64       `gorm:"primaryKey,autoIncrement"`
	PublicID       string      `gorm:"uniqueIndex"`
	Game           string      `gorm:"index:idx_rounds_game_status"`
	Number         int64       `gorm:"index"`
	Status         RoundStatus `gorm:"index:idx_rounds_game_status"`
	OutcomeSlot    int
	OutcomeColor   string
	OutcomeValue   float64 // game-specific: crash point, prize multiplier
	ServerSeed     string  `json:"-"`
	SeedCommitment string
	Nonce          string
	SummaryJSON    string `json:"-"`
	CreatedAt      time.Time
	LockedAt       *time.Time
	ClaimedAt      *time.Time `json:"-"`
	ResolvedAt     *time.Time
}

// NewRound builds an open round with the next sequential number for the
// game and a fresh seed commitment. The caller persists it.
func NewRound(tx *gorm.DB, game, serverSeed, commitment string) (*Round, error) {
	if tx == nil {
		tx = db.DB
	}

	var lastNumber int64
	err := tx.Model(&Round{}).
		Where("game = ?", game).
		Select("COALESCE(MAX(number), 0)").
		Scan(&lastNumber).Error
	if err != nil {
		return nil, logger.WrapError(err, "")
	}

	round := &Round{
		PublicID:       uuid.NewString(),
		Game:           game,
		Number:         lastNumber + 1,
		Status:         RoundOpen,
		ServerSeed:     serverSeed,
		SeedCommitment: commitment,
		CreatedAt:      time.Now(),
	}
	if err := tx.Create(round).Error; err != nil {
		return nil, logger.WrapError(err, "")
	}

	return round, nil
}

func GetRound(tx *gorm.DB, roundID int64) (*Round, error) {
	if tx == nil {
		tx = db.DB
	}

	var round Round
	if err := tx.First(&round, roundID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, logger.WrapError(err, "")
	}

	return &round, nil
}

// GetRoundByPublicID resolves the externally visible round id.
func GetRoundByPublicID(tx *gorm.DB, publicID string) (*Round, error) {
	if tx == nil {
		tx = db.DB
	}

	var round Round
	err := tx.Where("public_id = ?", publicID).First(&round).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoundNotFound
	}
	if err != nil {
		return nil, logger.WrapError(err, "")
	}

	return &round, nil
}

// GetCurrentRound returns the newest round of the game that has not reached
// a terminal state yet.
func GetCurrentRound(tx *gorm.DB, game string) (*Round, error) {
	if tx == nil {
		tx = db.DB
	}

	var round Round
	err := tx.Where("game = ? AND status IN ?", game,
		[]RoundStatus{RoundOpen, RoundLocked, RoundResolving}).
		Order("number desc").
		First(&round).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoundNotFound
	}
	if err != nil {
		return nil, logger.WrapError(err, "")
	}

	return &round, nil
}

// HasFailedRound reports whether the game has a stuck round awaiting
// operator attention. New rounds must not be created while one exists.
func HasFailedRound(tx *gorm.DB, game string) (bool, error) {
	if tx == nil {
		tx = db.DB
	}

	var exists bool
	err := tx.Model(&Round{}).
		Select("count(*) > 0").
		Where("game = ? AND status = ?", game, RoundFailed).
		Scan(&exists).Error
	if err != nil {
		return true, logger.WrapError(err, "")
	}

	return exists, nil
}

// Lock closes the betting window: open -> locked. Idempotent for callers
// racing the countdown; only the transition itself reports rows affected.
func (r *Round) Lock(tx *gorm.DB) error {
	if tx == nil {
		tx = db.DB
	}

	now := time.Now()
	res := tx.Model(&Round{}).
		Where("id = ? AND status = ?", r.ID, RoundOpen).
		Updates(map[string]interface{}{"status": RoundLocked, "locked_at": now})
	if res.Error != nil {
		return logger.WrapError(res.Error, "")
	}
	if res.RowsAffected == 1 {
		r.Status = RoundLocked
		r.LockedAt = &now
	}

	return nil
}

// StoreOutcome fixes the round outcome. The outcome-absence predicate makes
// the write first-wins: a re-derived outcome can never overwrite a stored
// one, and losing the race is not an error since the draw is deterministic.
// Every game sets a non-empty color or a positive value, so the empty/zero
// pair reliably marks an undrawn round.
func (r *Round) StoreOutcome(tx *gorm.DB, slot int, color string, value float64) error {
	if tx == nil {
		tx = db.DB
	}

	res := tx.Model(&Round{}).
		Where("id = ? AND status IN ? AND seed_commitment != ''"+
			" AND outcome_color = '' AND outcome_value = 0", r.ID,
			[]RoundStatus{RoundLocked, RoundResolving}).
		Updates(map[string]interface{}{
			"outcome_slot":  slot,
			"outcome_color": color,
			"outcome_value": value,
		})
	if res.Error != nil {
		return logger.WrapError(res.Error, "")
	}
	if res.RowsAffected == 1 {
		r.OutcomeSlot = slot
		r.OutcomeColor = color
		r.OutcomeValue = value
	}

	return nil
}

// ClaimForSettlement is the at-most-once gate in front of the payout pass.
// Exactly one concurrent caller wins the locked -> resolving transition; a
// claim older than staleAfter may be taken over so a crashed settler cannot
// wedge the round forever. Losers get ErrSettlementClaimed and must treat
// the round as being handled elsewhere.
func (r *Round) ClaimForSettlement(tx *gorm.DB, staleAfter time.Duration) error {
	if tx == nil {
		tx = db.DB
	}

	now := time.Now()
	staleBefore := now.Add(-staleAfter)
	res := tx.Model(&Round{}).
		Where("id = ? AND (status = ? OR (status = ? AND claimed_at < ?))",
			r.ID, RoundLocked, RoundResolving, staleBefore).
		Updates(map[string]interface{}{"status": RoundResolving, "claimed_at": now})
	if res.Error != nil {
		return logger.WrapError(res.Error, "")
	}
	if res.RowsAffected == 0 {
		return ErrSettlementClaimed
	}

	r.Status = RoundResolving
	r.ClaimedAt = &now
	return nil
}

// MarkResolved finalizes the round with its settlement summary. Conditional
// on resolving status, so it can fire at most once.
func (r *Round) MarkResolved(tx *gorm.DB, summaryJSON string) error {
	if tx == nil {
		tx = db.DB
	}

	now := time.Now()
	res := tx.Model(&Round{}).
		Where("id = ? AND status = ?", r.ID, RoundResolving).
		Updates(map[string]interface{}{
			"status":       RoundResolved,
			"summary_json": summaryJSON,
			"resolved_at":  now,
		})
	if res.Error != nil {
		return logger.WrapError(res.Error, "")
	}
	if res.RowsAffected == 0 {
		return ErrRoundAlreadyResolved
	}

	r.Status = RoundResolved
	r.SummaryJSON = summaryJSON
	r.ResolvedAt = &now
	return nil
}

// MarkFailed parks the round in the failed state after resolution retries
// are exhausted. Never called with a fabricated outcome.
func (r *Round) MarkFailed(tx *gorm.DB) error {
	if tx == nil {
		tx = db.DB
	}

	res := tx.Model(&Round{}).
		Where("id = ? AND status IN ?", r.ID,
			[]RoundStatus{RoundLocked, RoundResolving}).
		Update("status", RoundFailed)
	if res.Error != nil {
		return logger.WrapError(res.Error, "")
	}
	if res.RowsAffected == 1 {
		r.Status = RoundFailed
	}

	return nil
}
