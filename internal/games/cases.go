package games

import "CasinoApi/internal/fair"

// casePrize is one tier of the case-opening prize table. Weights are
// integer odds out of the table total; the multiplier applies to the stake
// (the case price). Expected return sums to 0.96.
type casePrize struct {
	Tier       string
	Weight     uint64
	Multiplier float64
}

var casePrizes = []casePrize{
	{Tier: "dud", Weight: 44, Multiplier: 0},
	{Tier: "common", Weight: 30, Multiplier: 0.8},
	{Tier: "uncommon", Weight: 15, Multiplier: 1.5},
	{Tier: "rare", Weight: 8, Multiplier: 3},
	{Tier: "epic", Weight: 2, Multiplier: 10},
	{Tier: "legendary", Weight: 1, Multiplier: 25},
}

// Cases opens a weighted prize table: the stake buys the case, the drawn
// tier's multiplier settles it. Selection is always "open".
type Cases struct{}

func init() { register(Cases{}) }

func caseWeightTotal() uint64 {
	var total uint64
	for _, p := range casePrizes {
		total += p.Weight
	}
	return total
}

func (Cases) Name() string { return "cases" }

func (Cases) ValidateBet(selection string, target float64) error {
	if selection != "open" {
		return ErrInvalidSelection
	}
	return nil
}

func (Cases) Outcome(d *fair.Draw) Outcome {
	r := d.Uint64n(caseWeightTotal())

	var cumulative uint64
	for i, p := range casePrizes {
		cumulative += p.Weight
		if r < cumulative {
			return Outcome{
				Game:  "cases",
				Slot:  i,
				Color: p.Tier,
				Value: p.Multiplier,
			}
		}
	}

	// Unreachable while weights sum to the total; settle as the last tier.
	last := len(casePrizes) - 1
	return Outcome{
		Game:  "cases",
		Slot:  last,
		Color: casePrizes[last].Tier,
		Value: casePrizes[last].Multiplier,
	}
}

func (Cases) Match(selection string, target float64, o Outcome) (bool, float64) {
	if o.Value <= 0 {
		return false, 0
	}
	return true, o.Value
}

// PotentialMultiplier reports the table ceiling, the legendary tier.
func (Cases) PotentialMultiplier(selection string, target float64) float64 {
	return casePrizes[len(casePrizes)-1].Multiplier
}
