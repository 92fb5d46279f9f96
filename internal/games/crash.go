package games

import (
	"CasinoApi/internal/fair"
	"fmt"
	"math"
)

const (
	crashEdge    = 0.04
	crashMax     = 100.0
	crashMinAuto = 1.01
)

// Crash draws a crash point from the classic house-edged inverse-uniform
// curve: point = (1-edge)/U, clamped to [1, 100] and floored to cents. A bet
// carries an auto-cashout target and wins when the flight reaches it.
type Crash struct{}

func init() { register(Crash{}) }

func (Crash) Name() string { return "crash" }

func (Crash) ValidateBet(selection string, target float64) error {
	if selection != "auto" {
		return ErrInvalidSelection
	}
	if target < crashMinAuto || target > crashMax {
		return fmt.Errorf("%w: cashout must be between %.2f and %.0f",
			ErrInvalidSelection, crashMinAuto, crashMax)
	}
	return nil
}

func (Crash) Outcome(d *fair.Draw) Outcome {
	u := d.Float64()
	point := crashMax
	if u > 0 {
		point = (1 - crashEdge) / u
	}
	if point < 1 {
		point = 1
	}
	if point > crashMax {
		point = crashMax
	}
	point = math.Floor(point*100) / 100

	return Outcome{
		Game:  "crash",
		Value: point,
	}
}

func (Crash) Match(selection string, target float64, o Outcome) (bool, float64) {
	if target < crashMinAuto || target > o.Value {
		return false, 0
	}
	return true, target
}

func (Crash) PotentialMultiplier(selection string, target float64) float64 {
	return target
}
