package leveling

import "math"

// CalculateLevel is floor(sqrt(xp/100)) + 1, computed on integers so it
// stays exact for any xp.
func CalculateLevel(xp int64) int64 {
	if xp < 100 {
		return 1
	}
	return isqrt(xp/100) + 1
}

// XPForLevel is the total xp at which level is reached.
func XPForLevel(level int64) int64 {
	if level <= 1 {
		return 0
	}
	n := level - 1
	return n * n * 100
}

// Progress describes how far xp is into its current level.
type Progress struct {
	Level       int64
	Into        int64
	Needed      int64
	NextLevelXP int64
}

func ProgressFor(xp int64) Progress {
	level := CalculateLevel(xp)
	start := XPForLevel(level)
	next := XPForLevel(level + 1)
	return Progress{Level: level, Into: xp - start, Needed: next - start, NextLevelXP: next}
}

func isqrt(n int64) int64 {
	r := int64(math.Sqrt(float64(n)))
	for r*r > n {
		r--
	}
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}
