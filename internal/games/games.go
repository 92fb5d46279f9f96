// Package games holds the payout tables and outcome matching for every game
// on the platform. The house edge lives entirely in these multiplier tables;
// the fair draw underneath is always uniform.
package games

import (
	"CasinoApi/internal/fair"
	"errors"
	"fmt"
)

var ErrInvalidSelection = errors.New("invalid selection")

// Outcome is the game-specific outcome descriptor fixed at resolution.
type Outcome struct {
	Game  string  `json:"game"`
	Slot  int     `json:"slot"`
	Color string  `json:"color,omitempty"`
	Value float64 `json:"value,omitempty"`
}

// Game maps the uniform fair draw onto outcomes and settles selections
// against them.
type Game interface {
	Name() string
	// ValidateBet rejects unknown selections and out-of-range targets at
	// placement time, before anything reaches the settlement engine.
	ValidateBet(selection string, target float64) error
	// Outcome derives the round outcome from the fair draw. Deterministic:
	// the same draw materials always yield the same outcome.
	Outcome(d *fair.Draw) Outcome
	// Match decides win/loss and the payout multiplier for one bet.
	Match(selection string, target float64, o Outcome) (won bool, multiplier float64)
	// PotentialMultiplier is the multiplier a winning bet would pay, shown
	// to the player at placement time.
	PotentialMultiplier(selection string, target float64) float64
}

var registry = map[string]Game{}

func register(g Game) {
	registry[g.Name()] = g
}

// Lookup returns the game implementation by name.
func Lookup(name string) (Game, error) {
	g, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown game %q", name)
	}
	return g, nil
}

// Names lists the registered games.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
