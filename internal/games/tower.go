package games

import (
	"CasinoApi/internal/fair"
	"fmt"
	"math"
	"strconv"
)

const (
	towerRows    = 8
	towerChoices = 3
)

// Tower is an 8-row ladder with 3 tiles per row, one of them a trap. The
// outcome is how many rows the climb survives; a bet targets the row it
// cashes out on and wins when the climb reaches it. Survival odds per row
// are 2/3, so the row multipliers grow by 1.5 minus the edge.
type Tower struct{}

func init() { register(Tower{}) }

// towerMultiplier pays (3/2)^row scaled by a 4% edge.
func towerMultiplier(row int) float64 {
	m := 0.96 * math.Pow(1.5, float64(row))
	return math.Floor(m*100) / 100
}

func (Tower) Name() string { return "tower" }

func (Tower) ValidateBet(selection string, target float64) error {
	if selection != "row" {
		return ErrInvalidSelection
	}
	row := int(target)
	if float64(row) != target || row < 1 || row > towerRows {
		return fmt.Errorf("%w: target row must be 1..%d", ErrInvalidSelection, towerRows)
	}
	return nil
}

func (Tower) Outcome(d *fair.Draw) Outcome {
	survived := 0
	for i := 0; i < towerRows; i++ {
		if d.Uint64n(towerChoices) == 0 {
			break
		}
		survived++
	}

	return Outcome{
		Game:  "tower",
		Slot:  survived,
		Color: strconv.Itoa(survived),
	}
}

func (Tower) Match(selection string, target float64, o Outcome) (bool, float64) {
	row := int(target)
	if row < 1 || o.Slot < row {
		return false, 0
	}
	return true, towerMultiplier(row)
}

func (Tower) PotentialMultiplier(selection string, target float64) float64 {
	return towerMultiplier(int(target))
}
