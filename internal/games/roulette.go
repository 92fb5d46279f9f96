package games

import "CasinoApi/internal/fair"

// RouletteSector defines one sector on the wheel.
type RouletteSector struct {
	Color        string `json:"color"`
	SectorID     int    `json:"sector_id"`
	SectorNumber int    `json:"sector_number"`
}

// RouletteSectors is the 15-sector wheel: 7 red, 7 black, 1 green. Every
// sector is equiprobable; the edge sits in the 2x/14x payouts.
var RouletteSectors = []RouletteSector{
	{Color: "red", SectorID: 1, SectorNumber: 1},
	{Color: "black", SectorID: 2, SectorNumber: 8},
	{Color: "red", SectorID: 3, SectorNumber: 2},
	{Color: "black", SectorID: 4, SectorNumber: 9},
	{Color: "red", SectorID: 5, SectorNumber: 3},
	{Color: "black", SectorID: 6, SectorNumber: 10},
	{Color: "red", SectorID: 7, SectorNumber: 4},
	{Color: "black", SectorID: 8, SectorNumber: 11},
	{Color: "red", SectorID: 9, SectorNumber: 5},
	{Color: "black", SectorID: 10, SectorNumber: 12},
	{Color: "red", SectorID: 11, SectorNumber: 6},
	{Color: "black", SectorID: 12, SectorNumber: 13},
	{Color: "red", SectorID: 13, SectorNumber: 7},
	{Color: "black", SectorID: 14, SectorNumber: 14},
	{Color: "green", SectorID: 15, SectorNumber: 0},
}

var roulettePayouts = map[string]float64{
	"red":   2,
	"black": 2,
	"green": 14,
}

type Roulette struct{}

func init() { register(Roulette{}) }

func (Roulette) Name() string { return "roulette" }

func (Roulette) ValidateBet(selection string, target float64) error {
	if _, ok := roulettePayouts[selection]; !ok {
		return ErrInvalidSelection
	}
	return nil
}

func (Roulette) Outcome(d *fair.Draw) Outcome {
	sector := RouletteSectors[d.Uint64n(uint64(len(RouletteSectors)))]
	return Outcome{
		Game:  "roulette",
		Slot:  sector.SectorNumber,
		Color: sector.Color,
	}
}

func (Roulette) Match(selection string, target float64, o Outcome) (bool, float64) {
	if selection != o.Color {
		return false, 0
	}
	return true, roulettePayouts[selection]
}

func (Roulette) PotentialMultiplier(selection string, target float64) float64 {
	return roulettePayouts[selection]
}
