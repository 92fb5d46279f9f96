package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequirementForLevel(t *testing.T) {
	assert.Equal(t, 0.0, RequirementForLevel(1))
	assert.Equal(t, 1000.0, RequirementForLevel(2))
	assert.Equal(t, 3000.0, RequirementForLevel(3))
	assert.Equal(t, 6000.0, RequirementForLevel(4))

	// the step from L to L+1 always costs 1000*L
	for level := 1; level < MaxLevel; level++ {
		step := RequirementForLevel(level+1) - RequirementForLevel(level)
		assert.Equal(t, float64(1000*level), step)
	}
}

func TestLevelForXP(t *testing.T) {
	assert.Equal(t, 1, LevelForXP(0))
	assert.Equal(t, 1, LevelForXP(999))
	assert.Equal(t, 2, LevelForXP(1000))
	assert.Equal(t, 2, LevelForXP(2999))
	assert.Equal(t, 3, LevelForXP(3000))
	assert.Equal(t, 1, LevelForXP(-50))
	assert.Equal(t, MaxLevel, LevelForXP(RequirementForLevel(MaxLevel)+1e9))
}

func TestLevelForXPMonotonic(t *testing.T) {
	prev := 1
	for xp := 0.0; xp < 100000; xp += 500 {
		level := LevelForXP(xp)
		assert.GreaterOrEqual(t, level, prev)
		prev = level
	}
}

func TestLevelStatsForXP(t *testing.T) {
	stats := LevelStatsForXP(1500)
	assert.Equal(t, 2, stats.Level)
	assert.Equal(t, 500.0, stats.CurrentLevelXP)
	assert.Equal(t, 1500.0, stats.XPToNextLevel)

	// invariant: current_level_xp + requirement(level) == lifetime_xp
	for _, xp := range []float64{0, 1, 999, 1000, 4200, 99999} {
		s := LevelStatsForXP(xp)
		assert.Equal(t, xp, s.CurrentLevelXP+RequirementForLevel(s.Level))
	}

	top := LevelStatsForXP(RequirementForLevel(MaxLevel))
	assert.Equal(t, MaxLevel, top.Level)
	assert.Equal(t, 0.0, top.XPToNextLevel)
}
