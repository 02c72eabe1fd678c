package core

import (
	"fmt"
	"math"
	"time"
)

const secondsPerDay = 86400

// ScoreParams holds the tuning constants of the activity score. The defaults
// are empirical; change them only if behavioral compatibility with existing
// deployments does not matter.
type ScoreParams struct {
	// AgeWeight scales the sigmoid argument (age in days plus the smoothed
	// activity signal).
	AgeWeight float64 `json:"age_weight" env:"GIMMEFY_SCORE_AGE_WEIGHT"`
	// TotalWeight scales the long-term raw score addend.
	TotalWeight float64 `json:"total_weight" env:"GIMMEFY_SCORE_TOTAL_WEIGHT"`
	// BasePerCPU is the score ceiling contributed per concurrent worker.
	BasePerCPU float64 `json:"base_per_cpu" env:"GIMMEFY_SCORE_BASE_PER_CPU"`
}

// DefaultScoreParams returns the compatibility constants.
func DefaultScoreParams() ScoreParams {
	return ScoreParams{
		AgeWeight:   0.01,
		TotalWeight: 0.001,
		BasePerCPU:  50,
	}
}

// Score blends host age, worker concurrency, and the smoothed activity signal
// into one experience floor, with the long-term raw score as a small addend:
//
//	score = base*(cpus+1) * sigmoid(ageWeight*(age_days + expavg)) + totalWeight*total
//
// The result is fed into promotion as an absolute experience value, so it only
// ever raises a user's total experience.
func (p ScoreParams) Score(totalScore, expavgScore float64, cpus int, registration, now time.Time) float64 {
	ageDays := now.Sub(registration).Seconds() / secondsPerDay
	return p.BasePerCPU*float64(cpus+1)*sigmoid(p.AgeWeight*(ageDays+expavgScore)) +
		p.TotalWeight*totalScore
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// StreakBucket quantizes a max streak into the asset buckets 1, 7 and 14.
func StreakBucket(maxStreak int) int {
	switch {
	case maxStreak >= 14:
		return 14
	case maxStreak >= 7:
		return 7
	default:
		return 1
	}
}

// AvatarKey derives the deterministic presentation key for a user. Resolving
// the key to a binary asset is up to the caller.
func AvatarKey(u *User) string {
	multiHost := 0
	if u.TotalHosts >= 2 {
		multiHost = 1
	}
	android := 0
	if u.HasAndroid {
		android = 1
	}
	return fmt.Sprintf("%s_%s_%d_%d_%d_%d_%d",
		u.Gender, u.Theme, android, multiHost, StreakBucket(u.MaxStreak), u.Level, u.ItemLevel)
}

// RenderedAvatarPath is the pre-rendered asset path keyed by theme, gender and
// item tier, relative to the asset root.
func RenderedAvatarPath(u *User) string {
	theme := "light"
	if u.Theme == ThemeDark {
		theme = "dark"
	}
	gen := "adv_man"
	if u.Gender == GenderFemale {
		gen = "adv_woman"
	}
	tier := u.ItemLevel - 1
	if tier < 1 {
		tier = 1
	}
	return fmt.Sprintf("%s/%s/%s_%d.png", theme, gen, gen, tier)
}
