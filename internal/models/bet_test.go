package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkSettledFiresOnce(t *testing.T) {
	conn := newTestDB(t)
	account := createTestAccount(t, conn, 100)
	round := createTestRound(t, conn, "roulette")

	bet := Bet{
		AccountID: account.ID,
		RoundID:   round.ID,
		Game:      "roulette",
		Stake:     10,
		Selection: "red",
		Status:    BetStatusActive,
	}
	require.NoError(t, conn.Create(&bet).Error)

	require.NoError(t, bet.MarkSettled(conn, true, 20, 10))
	assert.Equal(t, BetStatusWon, bet.Status)
	assert.Equal(t, 20.0, bet.Payout)
	require.NotNil(t, bet.SettledAt)

	// the settled-once guard rejects a second pass over the same bet
	again, err := func() (*Bet, error) {
		var b Bet
		return &b, conn.First(&b, bet.ID).Error
	}()
	require.NoError(t, err)
	assert.Error(t, again.MarkSettled(conn, true, 20, 10))
}

func TestActiveBetsForRoundExcludesSettled(t *testing.T) {
	conn := newTestDB(t)
	account := createTestAccount(t, conn, 100)
	round := createTestRound(t, conn, "roulette")

	var bets []Bet
	for i := 0; i < 3; i++ {
		bet := Bet{
			AccountID: account.ID,
			RoundID:   round.ID,
			Game:      "roulette",
			Stake:     5,
			Selection: "red",
			Status:    BetStatusActive,
		}
		require.NoError(t, conn.Create(&bet).Error)
		bets = append(bets, bet)
	}

	require.NoError(t, bets[0].MarkSettled(conn, false, 0, -5))

	active, err := ActiveBetsForRound(conn, round.ID)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	settled, err := SettledBetsForRound(conn, round.ID)
	require.NoError(t, err)
	assert.Len(t, settled, 1)
	assert.Equal(t, bets[0].ID, settled[0].ID)
}
