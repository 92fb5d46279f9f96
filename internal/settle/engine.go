// Package settle contains the round lifecycle manager and the settlement
// engine: outcome resolution, the payout pass and its exactly-once
// guarantees.
package settle

import (
	"CasinoApi/internal/fair"
	"CasinoApi/internal/games"
	"CasinoApi/internal/models"
	"CasinoApi/pkg/logger"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"
)

var (
	ErrRoundNotLocked       = errors.New("round has not been locked yet")
	ErrRoundFailed          = errors.New("round is parked as failed")
	ErrSettlementInProgress = errors.New("settlement in progress")
)

const xpRate = 1.0 // XP per unit wagered, win or lose

// Event is the change-feed payload emitted once per settled bet. Receivers
// deduplicate by (RoundID, AccountID).
type Event struct {
	Type      string  `json:"type"`
	Game      string  `json:"game"`
	RoundID   int64   `json:"round_id"`
	BetID     int64   `json:"bet_id"`
	AccountID int64   `json:"account_id"`
	Outcome   string  `json:"outcome"`
	Delta     float64 `json:"delta"`
	Balance   float64 `json:"balance"`
	XPAwarded float64 `json:"xp_awarded"`
}

// Feed receives settlement events; delivery mechanics live outside the core.
type Feed interface {
	Publish(Event)
}

// SettlementSummary reports one completed payout pass. It is persisted on
// the round row so repeated Settle calls return the identical value.
type SettlementSummary struct {
	RoundID          int64   `json:"round_id"`
	BetsProcessed    int     `json:"bets_processed"`
	WinnersProcessed int     `json:"winners_processed"`
	TotalPaidOut     float64 `json:"total_paid_out"`
	TotalXPAwarded   float64 `json:"total_xp_awarded"`
	FailedBetIDs     []int64 `json:"failed_bet_ids,omitempty"`
}

// Engine performs outcome resolution and bet settlement against the ledger
// store. It keeps no authoritative state of its own; any number of engine
// instances may race on the same round and the claim primitive picks the
// one that settles it.
type Engine struct {
	db              *gorm.DB
	feed            Feed
	claimStaleAfter time.Duration
	pollInterval    time.Duration
	pollTimeout     time.Duration
}

func NewEngine(db *gorm.DB, feed Feed) *Engine {
	return &Engine{
		db:              db,
		feed:            feed,
		claimStaleAfter: 30 * time.Second,
		pollInterval:    100 * time.Millisecond,
		pollTimeout:     10 * time.Second,
	}
}

func roundKey(r *models.Round) string {
	return fmt.Sprintf("%s:%d", r.Game, r.Number)
}

func hasOutcome(r *models.Round) bool {
	return r.OutcomeColor != "" || r.OutcomeValue > 0
}

func storedOutcome(r *models.Round) games.Outcome {
	return games.Outcome{
		Game:  r.Game,
		Slot:  r.OutcomeSlot,
		Color: r.OutcomeColor,
		Value: r.OutcomeValue,
	}
}

// Resolve fixes the round outcome from the fair draw. Idempotent: an already
// resolved (or already drawn) round returns the stored descriptor without a
// re-draw. The draw itself is deterministic over (seed, round key, nonce),
// so even a racing double derivation cannot produce two different outcomes.
func (e *Engine) Resolve(ctx context.Context, roundID int64) (games.Outcome, error) {
	tx := e.db.WithContext(ctx)

	round, err := models.GetRound(tx, roundID)
	if err != nil {
		return games.Outcome{}, err
	}

	if hasOutcome(round) {
		return storedOutcome(round), nil
	}
	if round.Status == models.RoundOpen {
		return games.Outcome{}, ErrRoundNotLocked
	}
	if round.Status == models.RoundFailed {
		return games.Outcome{}, ErrRoundFailed
	}

	game, err := games.Lookup(round.Game)
	if err != nil {
		return games.Outcome{}, logger.WrapError(err, "")
	}

	draw, err := fair.NewDraw(round.ServerSeed, roundKey(round), round.Nonce)
	if err != nil {
		return games.Outcome{}, logger.WrapError(err, "cannot resolve round")
	}

	outcome := game.Outcome(draw)
	if err := round.StoreOutcome(tx, outcome.Slot, outcome.Color, outcome.Value); err != nil {
		return games.Outcome{}, err
	}

	return outcome, nil
}

// Settle runs the payout pass for a locked round. Exactly-once semantics:
// concurrent callers race on the claim primitive; the loser polls and
// returns the winner's stored summary. Calling Settle on a resolved round
// is a no-op returning the prior summary. A bet whose mutation fails is
// logged, skipped and reported in FailedBetIDs; the rest of the round
// settles and the round still reaches resolved.
func (e *Engine) Settle(ctx context.Context, roundID int64) (*SettlementSummary, error) {
	tx := e.db.WithContext(ctx)

	round, err := models.GetRound(tx, roundID)
	if err != nil {
		return nil, err
	}

	if round.Status == models.RoundResolved {
		return summaryFromRound(round)
	}
	if round.Status == models.RoundOpen {
		return nil, ErrRoundNotLocked
	}
	if round.Status == models.RoundFailed {
		return nil, ErrRoundFailed
	}

	outcome, err := e.Resolve(ctx, roundID)
	if err != nil {
		return nil, err
	}

	if err := round.ClaimForSettlement(tx, e.claimStaleAfter); err != nil {
		if errors.Is(err, models.ErrSettlementClaimed) {
			return e.waitForSummary(ctx, roundID)
		}
		return nil, err
	}

	game, err := games.Lookup(round.Game)
	if err != nil {
		return nil, logger.WrapError(err, "")
	}

	bets, err := models.ActiveBetsForRound(tx, round.ID)
	if err != nil {
		return nil, err
	}

	var failed []int64
	events := make([]Event, 0, len(bets))
	for i := range bets {
		event, err := e.settleBet(ctx, &bets[i], game, outcome)
		if err != nil {
			logger.Error("Failed to settle bet %d (round %d): %v", bets[i].ID, round.ID, err)
			failed = append(failed, bets[i].ID)
			continue
		}
		events = append(events, event)
	}

	summary, err := e.buildSummary(tx, round, failed)
	if err != nil {
		return nil, err
	}

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return nil, logger.WrapError(err, "")
	}
	if err := round.MarkResolved(tx, string(summaryJSON)); err != nil {
		if errors.Is(err, models.ErrRoundAlreadyResolved) {
			// A stale-claim takeover finished first; its summary wins.
			return e.waitForSummary(ctx, roundID)
		}
		return nil, err
	}

	// Only bets settled by this pass are announced; bets a crashed settler
	// already committed before the takeover get no event here. Receivers
	// reconcile through the recent-events read and dedupe by
	// (RoundID, AccountID), so the feed is a hint, not the ledger.
	if e.feed != nil {
		for _, event := range events {
			e.feed.Publish(event)
		}
	}

	return summary, nil
}

// settleBet applies one bet's settlement as a single transaction: payout
// credit, XP accrual with level recompute, aggregate counters, the audit
// record and the settled-once flip on the bet row. Any failure rolls the
// whole unit back so a retry cannot double-pay.
func (e *Engine) settleBet(ctx context.Context, bet *models.Bet, game games.Game, outcome games.Outcome) (Event, error) {
	var event Event

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		won, multiplier := game.Match(bet.Selection, bet.Target, outcome)

		payout := 0.0
		if won {
			payout = math.Round(bet.Stake*multiplier*100) / 100
		}
		// Stake was deducted at placement, so losses add nothing here.
		profit := payout - bet.Stake

		if payout > 0 {
			if err := models.CreditBalance(tx, bet.AccountID, payout); err != nil {
				return err
			}
		}

		xp := xpRate * bet.Stake
		if err := models.AddXP(tx, bet.AccountID, xp); err != nil {
			return err
		}

		if err := models.BumpGameStats(tx, bet.AccountID, bet.Game, won, bet.Stake, profit, multiplier); err != nil {
			return err
		}

		details, err := json.Marshal(outcome)
		if err != nil {
			return logger.WrapError(err, "")
		}

		result := "lose"
		if won {
			result = "win"
		}
		history := models.GameHistory{
			AccountID:   bet.AccountID,
			RoundID:     bet.RoundID,
			Game:        bet.Game,
			Stake:       bet.Stake,
			Payout:      payout,
			Profit:      profit,
			Outcome:     result,
			DetailsJSON: string(details),
		}
		if err := models.AppendGameHistory(tx, &history); err != nil {
			return err
		}

		if err := bet.MarkSettled(tx, won, payout, profit); err != nil {
			return err
		}

		balance, err := models.GetBalance(tx, bet.AccountID)
		if err != nil {
			return err
		}

		event = Event{
			Type:      "bet_settled",
			Game:      bet.Game,
			RoundID:   bet.RoundID,
			BetID:     bet.ID,
			AccountID: bet.AccountID,
			Outcome:   result,
			Delta:     payout,
			Balance:   balance,
			XPAwarded: xp,
		}

		return nil
	})

	return event, err
}

// buildSummary recomputes the summary from the settled bet rows rather than
// from this pass's counters, so a retry after a partial failure reports the
// whole round, not just the bets it touched itself.
func (e *Engine) buildSummary(tx *gorm.DB, round *models.Round, failed []int64) (*SettlementSummary, error) {
	settled, err := models.SettledBetsForRound(tx, round.ID)
	if err != nil {
		return nil, err
	}

	summary := &SettlementSummary{
		RoundID:      round.ID,
		FailedBetIDs: failed,
	}
	for _, bet := range settled {
		summary.BetsProcessed++
		summary.TotalXPAwarded += xpRate * bet.Stake
		if bet.Status == models.BetStatusWon {
			summary.WinnersProcessed++
			summary.TotalPaidOut += bet.Payout
		}
	}

	return summary, nil
}

func summaryFromRound(round *models.Round) (*SettlementSummary, error) {
	var summary SettlementSummary
	if err := json.Unmarshal([]byte(round.SummaryJSON), &summary); err != nil {
		return nil, logger.WrapError(err, "corrupt settlement summary")
	}
	return &summary, nil
}

// waitForSummary is the loser path of the settlement race: poll the round
// until the claim winner resolves it, then hand back the identical summary.
func (e *Engine) waitForSummary(ctx context.Context, roundID int64) (*SettlementSummary, error) {
	deadline := time.Now().Add(e.pollTimeout)
	for {
		round, err := models.GetRound(e.db.WithContext(ctx), roundID)
		if err != nil {
			return nil, err
		}
		if round.Status == models.RoundResolved {
			return summaryFromRound(round)
		}
		if time.Now().After(deadline) {
			return nil, ErrSettlementInProgress
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.pollInterval):
		}
	}
}
