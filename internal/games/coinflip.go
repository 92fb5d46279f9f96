package games

import "CasinoApi/internal/fair"

// Coinflip is a two-sided uniform flip paying 1.96x (2% edge per side).
type Coinflip struct{}

const coinflipMultiplier = 1.96

var coinflipSides = []string{"heads", "tails"}

func init() { register(Coinflip{}) }

func (Coinflip) Name() string { return "coinflip" }

func (Coinflip) ValidateBet(selection string, target float64) error {
	if selection != "heads" && selection != "tails" {
		return ErrInvalidSelection
	}
	return nil
}

func (Coinflip) Outcome(d *fair.Draw) Outcome {
	side := int(d.Uint64n(2))
	return Outcome{
		Game:  "coinflip",
		Slot:  side,
		Color: coinflipSides[side],
	}
}

func (Coinflip) Match(selection string, target float64, o Outcome) (bool, float64) {
	if selection != o.Color {
		return false, 0
	}
	return true, coinflipMultiplier
}

func (Coinflip) PotentialMultiplier(selection string, target float64) float64 {
	return coinflipMultiplier
}
