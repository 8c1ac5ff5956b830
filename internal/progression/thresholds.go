package progression

import "github.com/speechops/grader/internal/bucket"

// Per-tier thresholds, indexed by bucket level. Ceilings and floors tighten
// as intervention need drops.
var (
	errorRateCeiling = [...]float64{
		bucket.HighTouch:   0.15,
		bucket.MediumTouch: 0.10,
		bucket.LowTouch:    0.05,
		bucket.NoTouch:     0.02,
	}

	accuracyFloor = [...]float64{
		bucket.HighTouch:   0.60,
		bucket.MediumTouch: 0.75,
		bucket.LowTouch:    0.85,
		bucket.NoTouch:     0.95,
	}

	consistencyFloor = [...]float64{
		bucket.HighTouch:   0.30,
		bucket.MediumTouch: 0.40,
		bucket.LowTouch:    0.50,
		bucket.NoTouch:     0.60,
	}
)

// errorRateScore grades an error rate against a tier's ceiling: 1.0 at or
// under the ceiling, linear decay to 0.0 across (ceiling, 1.5*ceiling].
func errorRateScore(lv bucket.Level, rate float64) float64 {
	ceiling := errorRateCeiling[lv]
	switch {
	case rate <= ceiling:
		return 1.0
	case rate <= 1.5*ceiling:
		return 1.0 - (rate-ceiling)/(0.5*ceiling)
	default:
		return 0.0
	}
}

// accuracyScore grades an accuracy against a tier's floor: 1.0 at or above
// the floor, proportional credit down to 0.8*floor, nothing below that.
func accuracyScore(lv bucket.Level, acc float64) float64 {
	floor := accuracyFloor[lv]
	switch {
	case acc >= floor:
		return 1.0
	case acc >= 0.8*floor:
		return acc / floor
	default:
		return 0.0
	}
}
