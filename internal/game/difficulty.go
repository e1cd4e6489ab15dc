package game

import "math"

const (
	minAdjustPct = 0.05
	maxAdjustPct = 0.15
	streakStep   = 0.02
	maxStreakPct = 0.10
)

// Difficulty is the rolling round duration plus the current streaks.
type Difficulty struct {
	BaseDurationMS int `json:"base_duration_ms"`
	SuccessStreak  int `json:"success_streak"`
	FailStreak     int `json:"fail_streak"`
}

func NewDifficulty(baseMS int) Difficulty {
	return Difficulty{BaseDurationMS: clamp(baseMS, MinRoundMS, MaxRoundMS)}
}

// Update shortens the base duration after a success and lengthens it after a
// fail. Consecutive results of the same kind add up to 10% on top of the
// random 5-15% step. The result stays within [MinRoundMS, MaxRoundMS].
func (d *Difficulty) Update(res Result, rnd Source) int {
	pct := uniform(rnd, minAdjustPct, maxAdjustPct)

	var next float64
	if res == Success {
		d.SuccessStreak++
		d.FailStreak = 0
		pct += math.Min(float64(d.SuccessStreak)*streakStep, maxStreakPct)
		next = float64(d.BaseDurationMS) * (1 - pct)
	} else {
		d.FailStreak++
		d.SuccessStreak = 0
		pct += math.Min(float64(d.FailStreak)*streakStep, maxStreakPct)
		next = float64(d.BaseDurationMS) * (1 + pct)
	}

	d.BaseDurationMS = clamp(int(math.Round(next)), MinRoundMS, MaxRoundMS)
	return d.BaseDurationMS
}
