package settle

import (
	"CasinoApi/internal/models"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateCurrentRound(t *testing.T) {
	conn := newTestDB(t)

	round, err := GetOrCreateCurrentRound(conn, "tower")
	require.NoError(t, err)
	assert.Equal(t, models.RoundOpen, round.Status)
	assert.NotEmpty(t, round.SeedCommitment)
	assert.NotEmpty(t, round.ServerSeed)

	// a second call joins the existing round instead of opening another
	again, err := GetOrCreateCurrentRound(conn, "tower")
	require.NoError(t, err)
	assert.Equal(t, round.ID, again.ID)
}

func TestGetOrCreateCurrentRoundBlockedByFailure(t *testing.T) {
	conn := newTestDB(t)

	round, err := GetOrCreateCurrentRound(conn, "cases")
	require.NoError(t, err)
	require.NoError(t, round.Lock(conn))
	require.NoError(t, round.MarkFailed(conn))

	_, err = GetOrCreateCurrentRound(conn, "cases")
	assert.ErrorIs(t, err, ErrRoundCreationBlocked)

	// other games keep running
	_, err = GetOrCreateCurrentRound(conn, "tower")
	assert.NoError(t, err)
}

func TestManagerRunsOneRoundEndToEnd(t *testing.T) {
	conn := newTestDB(t)
	engine := NewEngine(conn, nil)

	game := testGame(t, "coinflip")
	manager := NewManager(conn, engine, game, ManagerConfig{
		BettingWindow:     50 * time.Millisecond,
		InterRoundDelay:   time.Second,
		ResolveRetryDelay: 10 * time.Millisecond,
		MaxResolveRetries: 3,
	})

	account := createTestAccount(t, conn, 100)
	round, err := GetOrCreateCurrentRound(conn, "coinflip")
	require.NoError(t, err)
	placeTestBet(t, conn, account, round, 10, "heads", 0)

	require.NoError(t, manager.runRound(context.Background()))

	stored, err := models.GetRound(conn, round.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoundResolved, stored.Status)

	settled, err := models.SettledBetsForRound(conn, round.ID)
	require.NoError(t, err)
	assert.Len(t, settled, 1)
}

func TestManagerPicksUpLockedRound(t *testing.T) {
	conn := newTestDB(t)
	engine := NewEngine(conn, nil)
	game := testGame(t, "roulette")
	manager := NewManager(conn, engine, game, ManagerConfig{
		BettingWindow:     time.Hour, // would stall if the lock were re-awaited
		InterRoundDelay:   time.Second,
		ResolveRetryDelay: 10 * time.Millisecond,
		MaxResolveRetries: 3,
	})

	// a previous process locked the round and died before settling
	round := createLockedRound(t, conn, "roulette")

	require.NoError(t, manager.runRound(context.Background()))

	stored, err := models.GetRound(conn, round.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoundResolved, stored.Status)
}
