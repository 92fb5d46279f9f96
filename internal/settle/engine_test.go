package settle

import (
	"CasinoApi/internal/fair"
	"CasinoApi/internal/games"
	"CasinoApi/internal/models"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(conn))

	return conn
}

var accountSeq int64

func createTestAccount(t *testing.T, conn *gorm.DB, balance float64) *models.Account {
	t.Helper()

	account := &models.Account{
		Nickname: fmt.Sprintf("player-%d", atomic.AddInt64(&accountSeq, 1)),
		Balance:  balance,
	}
	require.NoError(t, conn.Create(account).Error)
	return account
}

func testGame(t *testing.T, name string) games.Game {
	t.Helper()

	game, err := games.Lookup(name)
	require.NoError(t, err)
	return game
}

func createLockedRound(t *testing.T, conn *gorm.DB, game string) *models.Round {
	t.Helper()

	seed, commitment, err := fair.NewServerSeed()
	require.NoError(t, err)
	round, err := models.NewRound(conn, game, seed, commitment)
	require.NoError(t, err)
	require.NoError(t, round.Lock(conn))
	return round
}

// placeTestBet mirrors placement: the stake leaves the balance together with
// the bet row.
func placeTestBet(t *testing.T, conn *gorm.DB, account *models.Account, round *models.Round, stake float64, selection string, target float64) *models.Bet {
	t.Helper()

	require.NoError(t, models.DebitBalance(conn, account.ID, stake))
	bet := &models.Bet{
		AccountID: account.ID,
		RoundID:   round.ID,
		Game:      round.Game,
		Stake:     stake,
		Selection: selection,
		Target:    target,
		Status:    models.BetStatusActive,
	}
	require.NoError(t, conn.Create(bet).Error)
	return bet
}

type recordingFeed struct {
	mu     sync.Mutex
	events []Event
}

func (f *recordingFeed) Publish(e Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *recordingFeed) all() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Event(nil), f.events...)
}

func TestResolveRequiresLockedRound(t *testing.T) {
	conn := newTestDB(t)
	engine := NewEngine(conn, nil)

	seed, commitment, err := fair.NewServerSeed()
	require.NoError(t, err)
	round, err := models.NewRound(conn, "roulette", seed, commitment)
	require.NoError(t, err)

	_, err = engine.Resolve(context.Background(), round.ID)
	assert.ErrorIs(t, err, ErrRoundNotLocked)
}

func TestResolveIsIdempotent(t *testing.T) {
	conn := newTestDB(t)
	engine := NewEngine(conn, nil)
	round := createLockedRound(t, conn, "roulette")

	first, err := engine.Resolve(context.Background(), round.ID)
	require.NoError(t, err)

	second, err := engine.Resolve(context.Background(), round.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	stored, err := models.GetRound(conn, round.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Color, stored.OutcomeColor)
	assert.Equal(t, first.Slot, stored.OutcomeSlot)
}

func TestResolveUnknownRound(t *testing.T) {
	conn := newTestDB(t)
	engine := NewEngine(conn, nil)

	_, err := engine.Resolve(context.Background(), 404)
	assert.ErrorIs(t, err, models.ErrRoundNotFound)
}

func TestSettlePaysWinnersAndAwardsXP(t *testing.T) {
	conn := newTestDB(t)
	feed := &recordingFeed{}
	engine := NewEngine(conn, feed)

	red := createTestAccount(t, conn, 100)
	black := createTestAccount(t, conn, 100)
	round := createLockedRound(t, conn, "roulette")

	placeTestBet(t, conn, red, round, 10, "red", 0)
	placeTestBet(t, conn, black, round, 10, "black", 0)

	summary, err := engine.Settle(context.Background(), round.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.BetsProcessed)
	assert.Equal(t, 20.0, summary.TotalXPAwarded)
	assert.Empty(t, summary.FailedBetIDs)

	outcome, err := engine.Resolve(context.Background(), round.ID)
	require.NoError(t, err)
	game, err := games.Lookup("roulette")
	require.NoError(t, err)

	expectedBalance := func(selection string) float64 {
		won, multiplier := game.Match(selection, 0, outcome)
		if won {
			return 90 + 10*multiplier
		}
		return 90
	}

	redBalance, err := models.GetBalance(conn, red.ID)
	require.NoError(t, err)
	assert.Equal(t, expectedBalance("red"), redBalance)

	blackBalance, err := models.GetBalance(conn, black.ID)
	require.NoError(t, err)
	assert.Equal(t, expectedBalance("black"), blackBalance)

	// XP accrues per unit wagered, win or lose
	for _, account := range []*models.Account{red, black} {
		stats, err := models.GetLevelStats(conn, account.ID)
		require.NoError(t, err)
		assert.Equal(t, 10.0, stats.LifetimeXP)
	}

	stored, err := models.GetRound(conn, round.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoundResolved, stored.Status)

	events := feed.all()
	assert.Len(t, events, 2)
	for _, event := range events {
		assert.Equal(t, "bet_settled", event.Type)
		assert.Equal(t, round.ID, event.RoundID)
	}
}

func TestSettleRouletteWinAndLossAmounts(t *testing.T) {
	conn := newTestDB(t)
	engine := NewEngine(conn, nil)

	winner := createTestAccount(t, conn, 100)
	loser := createTestAccount(t, conn, 100)
	round := createLockedRound(t, conn, "roulette")

	winBet := placeTestBet(t, conn, winner, round, 10, "red", 0)
	loseBet := placeTestBet(t, conn, loser, round, 10, "black", 0)

	// fix the outcome by hand so the amounts are exact
	require.NoError(t, round.StoreOutcome(conn, 3, "red", 0))

	summary, err := engine.Settle(context.Background(), round.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.BetsProcessed)
	assert.Equal(t, 1, summary.WinnersProcessed)
	assert.Equal(t, 20.0, summary.TotalPaidOut)

	var won models.Bet
	require.NoError(t, conn.First(&won, winBet.ID).Error)
	assert.Equal(t, models.BetStatusWon, won.Status)
	assert.Equal(t, 20.0, won.Payout)
	assert.Equal(t, 10.0, won.Profit)

	var lost models.Bet
	require.NoError(t, conn.First(&lost, loseBet.ID).Error)
	assert.Equal(t, models.BetStatusLost, lost.Status)
	assert.Zero(t, lost.Payout)
	assert.Equal(t, -10.0, lost.Profit)

	// stake left at placement; the win credits stake * multiplier, the loss
	// credits nothing
	winnerBalance, err := models.GetBalance(conn, winner.ID)
	require.NoError(t, err)
	assert.Equal(t, 110.0, winnerBalance)

	loserBalance, err := models.GetBalance(conn, loser.ID)
	require.NoError(t, err)
	assert.Equal(t, 90.0, loserBalance)
}

func TestSettleIsIdempotent(t *testing.T) {
	conn := newTestDB(t)
	engine := NewEngine(conn, nil)

	account := createTestAccount(t, conn, 100)
	round := createLockedRound(t, conn, "coinflip")
	placeTestBet(t, conn, account, round, 25, "heads", 0)

	first, err := engine.Settle(context.Background(), round.ID)
	require.NoError(t, err)

	balanceAfterFirst, err := models.GetBalance(conn, account.ID)
	require.NoError(t, err)

	// a repeat settle returns the stored summary and moves no money
	second, err := engine.Settle(context.Background(), round.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	balanceAfterSecond, err := models.GetBalance(conn, account.ID)
	require.NoError(t, err)
	assert.Equal(t, balanceAfterFirst, balanceAfterSecond)

	stats, err := models.GetLevelStats(conn, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 25.0, stats.LifetimeXP, "XP is awarded exactly once")
}

func TestSettleRequiresLockedRound(t *testing.T) {
	conn := newTestDB(t)
	engine := NewEngine(conn, nil)

	seed, commitment, err := fair.NewServerSeed()
	require.NoError(t, err)
	round, err := models.NewRound(conn, "crash", seed, commitment)
	require.NoError(t, err)

	_, err = engine.Settle(context.Background(), round.ID)
	assert.ErrorIs(t, err, ErrRoundNotLocked)
}

func TestSettleLoserWaitsOutTheClaim(t *testing.T) {
	conn := newTestDB(t)
	engine := NewEngine(conn, nil)
	engine.pollInterval = 10 * time.Millisecond
	engine.pollTimeout = 50 * time.Millisecond

	round := createLockedRound(t, conn, "roulette")
	_, err := engine.Resolve(context.Background(), round.ID)
	require.NoError(t, err)

	// another settler holds a fresh claim and never finishes
	holder, err := models.GetRound(conn, round.ID)
	require.NoError(t, err)
	require.NoError(t, holder.ClaimForSettlement(conn, time.Minute))

	_, err = engine.Settle(context.Background(), round.ID)
	assert.ErrorIs(t, err, ErrSettlementInProgress)
}

func TestSettleTakesOverStaleClaim(t *testing.T) {
	conn := newTestDB(t)
	engine := NewEngine(conn, nil)
	engine.claimStaleAfter = 100 * time.Millisecond

	account := createTestAccount(t, conn, 100)
	round := createLockedRound(t, conn, "roulette")
	placeTestBet(t, conn, account, round, 10, "red", 0)

	// a crashed settler left the round mid-claim
	holder, err := models.GetRound(conn, round.ID)
	require.NoError(t, err)
	require.NoError(t, holder.ClaimForSettlement(conn, time.Minute))
	stale := time.Now().Add(-time.Second)
	require.NoError(t, conn.Model(&models.Round{}).
		Where("id = ?", round.ID).
		Update("claimed_at", stale).Error)

	summary, err := engine.Settle(context.Background(), round.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.BetsProcessed)

	stored, err := models.GetRound(conn, round.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoundResolved, stored.Status)
}

func TestSettleSkipsFailingBetAndResolves(t *testing.T) {
	conn := newTestDB(t)
	engine := NewEngine(conn, nil)

	account := createTestAccount(t, conn, 100)
	round := createLockedRound(t, conn, "roulette")
	good := placeTestBet(t, conn, account, round, 10, "red", 0)

	// a bet whose account vanished cannot settle
	orphan := &models.Bet{
		AccountID: 9999,
		RoundID:   round.ID,
		Game:      "roulette",
		Stake:     10,
		Selection: "black",
		Status:    models.BetStatusActive,
	}
	require.NoError(t, conn.Create(orphan).Error)

	summary, err := engine.Settle(context.Background(), round.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.BetsProcessed)
	assert.Equal(t, []int64{orphan.ID}, summary.FailedBetIDs)

	stored, err := models.GetRound(conn, round.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoundResolved, stored.Status, "one bad bet does not wedge the round")

	var betRow models.Bet
	require.NoError(t, conn.First(&betRow, good.ID).Error)
	assert.NotEqual(t, models.BetStatusActive, betRow.Status)

	var orphanRow models.Bet
	require.NoError(t, conn.First(&orphanRow, orphan.ID).Error)
	assert.Equal(t, models.BetStatusActive, orphanRow.Status, "failed bets stay auditable")
}

func TestSettleSummaryTotalsMatchBets(t *testing.T) {
	conn := newTestDB(t)
	engine := NewEngine(conn, nil)

	round := createLockedRound(t, conn, "coinflip")
	for i := 0; i < 5; i++ {
		account := createTestAccount(t, conn, 50)
		selection := "heads"
		if i%2 == 1 {
			selection = "tails"
		}
		placeTestBet(t, conn, account, round, 10, selection, 0)
	}

	summary, err := engine.Settle(context.Background(), round.ID)
	require.NoError(t, err)

	assert.Equal(t, 5, summary.BetsProcessed)
	assert.Equal(t, 50.0, summary.TotalXPAwarded)

	settled, err := models.SettledBetsForRound(conn, round.ID)
	require.NoError(t, err)

	var paid float64
	var winners int
	for _, bet := range settled {
		if bet.Status == models.BetStatusWon {
			winners++
			paid += bet.Payout
		}
	}
	assert.Equal(t, winners, summary.WinnersProcessed)
	assert.Equal(t, paid, summary.TotalPaidOut)
}
