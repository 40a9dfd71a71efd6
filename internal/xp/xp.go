package xp

import "math"

const (
	baseAward     = 10
	perDifficulty = 15.0
	streakStep    = 5
	streakBonus   = 25
)

// ForDifficulty returns the XP awarded for correctly solving a problem of the
// given difficulty. Difficulty is on the 1.0-5.0 scale used by the problem bank.
func ForDifficulty(difficulty float64) int {
	if difficulty <= 0 {
		return baseAward
	}
	award := int(math.Round(difficulty * perDifficulty))
	if award < baseAward {
		return baseAward
	}
	return award
}

// StreakBonus returns the extra XP awarded when a daily streak reaches a
// multiple of five days.
func StreakBonus(streak int) int {
	if streak > 0 && streak%streakStep == 0 {
		return streakBonus
	}
	return 0
}
