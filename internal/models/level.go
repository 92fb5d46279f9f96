package models

// The level curve is a monotonic step function over lifetime XP. Reaching
// level L requires RequirementForLevel(L) lifetime XP in total; the step
// from L to L+1 costs 1000*L XP, so early levels come fast and the curve
// keeps growing without a lookup table.
const MaxLevel = 60

// RequirementForLevel returns the cumulative lifetime XP needed to reach
// level. Level 1 is the registration level and costs nothing.
func RequirementForLevel(level int) float64 {
	if level <= 1 {
		return 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	// sum of 1000*l for l in [1, level-1]
	n := float64(level - 1)
	return 500 * n * (n + 1)
}

// LevelForXP returns the level an account with the given lifetime XP holds.
func LevelForXP(lifetimeXP float64) int {
	if lifetimeXP < 0 {
		return 1
	}
	level := 1
	for level < MaxLevel && lifetimeXP >= RequirementForLevel(level+1) {
		level++
	}
	return level
}

// LevelStats is the account read model for the level endpoint.
type LevelStats struct {
	Level          int     `json:"level"`
	LifetimeXP     float64 `json:"lifetime_xp"`
	CurrentLevelXP float64 `json:"current_level_xp"`
	XPToNextLevel  float64 `json:"xp_to_next_level"`
}

// LevelStatsForXP derives the full read model from lifetime XP. The
// invariant current_level_xp + RequirementForLevel(level) == lifetime_xp
// holds by construction.
func LevelStatsForXP(lifetimeXP float64) LevelStats {
	level := LevelForXP(lifetimeXP)
	stats := LevelStats{
		Level:          level,
		LifetimeXP:     lifetimeXP,
		CurrentLevelXP: lifetimeXP - RequirementForLevel(level),
	}
	if level < MaxLevel {
		stats.XPToNextLevel = RequirementForLevel(level+1) - lifetimeXP
	}
	return stats
}
