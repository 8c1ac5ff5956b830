// Package progression decides whether a speaker should move quality tiers.
//
// The engine is a pure function over a profile, its correction history, and
// a criteria set: no side effects, no hidden state, total on any well-typed
// input (out-of-range metrics are clamped, never rejected).
package progression

import (
	"fmt"
	"time"

	"github.com/speechops/grader/internal/bucket"
	"github.com/speechops/grader/internal/quality"
	"github.com/speechops/grader/internal/speaker"
)

// Direction is the engine's verdict for one speaker.
type Direction string

const (
	Promote Direction = "promote"
	Demote  Direction = "demote"
	Stable  Direction = "stable"
)

// minRecentReports is the activity floor for any non-Stable verdict: with
// fewer fresh reports the metrics are too thin to act on.
const minRecentReports = 3

// Recommendation carries the verdict plus the evidence it was based on.
// RecommendedBucket is meaningful only when Direction is not Stable.
type Recommendation struct {
	Direction         Direction       `json:"direction"`
	RecommendedBucket bucket.Level    `json:"recommended_bucket,omitempty"`
	Confidence        float64         `json:"confidence"`
	Reason            string          `json:"reason"`
	Metrics           quality.Metrics `json:"metrics"`
	AnalyzedAt        time.Time       `json:"analyzed_at"`
}

// Evaluate runs the full decision ladder for one speaker. recentChanges is
// the number of approved tier changes in the trailing 30 days, counted by
// the caller from the request history.
//
// First matching branch wins: eligibility gate, promotion, demotion, stable.
func Evaluate(p speaker.Profile, reports []quality.CorrectionReport, recentChanges int, c Criteria, now time.Time) Recommendation {
	m := quality.Aggregate(reports, now)
	rec := Recommendation{
		Direction:         Stable,
		RecommendedBucket: p.CurrentBucket,
		Metrics:           m,
		AnalyzedAt:        now,
	}

	if !eligible(p, m, recentChanges, c) {
		rec.Reason = "insufficient data"
		return rec
	}

	if next, ok := p.CurrentBucket.NextBetter(); ok && m.TotalReports >= c.MinReportsForPromotion {
		if score := promotionScore(next, m); score >= c.PromotionConfidenceThreshold {
			rec.Direction = Promote
			rec.RecommendedBucket = next
			rec.Confidence = score
			rec.Reason = fmt.Sprintf("quality metrics meet %s requirements", next)
			return rec
		}
	}

	if prev, ok := p.CurrentBucket.PreviousWorse(); ok && m.TotalReports >= c.MinReportsForDemotion {
		if score := demotionScore(p.CurrentBucket, m); score >= c.DemotionConfidenceThreshold {
			rec.Direction = Demote
			rec.RecommendedBucket = prev
			rec.Confidence = score
			rec.Reason = fmt.Sprintf("quality fell below %s requirements", p.CurrentBucket)
			return rec
		}
	}

	rec.Confidence = 0.5
	rec.Reason = "meets current tier requirements"
	return rec
}

// eligible is the anti-thrash gate: enough time in tier, enough recent
// activity, outside the cooldown window, and under the monthly change cap.
func eligible(p speaker.Profile, m quality.Metrics, recentChanges int, c Criteria) bool {
	if p.DaysInCurrentBucket < c.MinDaysInBucket {
		return false
	}
	if m.ReportsLast30Days < minRecentReports {
		return false
	}
	// Cooldown: the tier clock resets on every approved change, so a young
	// clock on a previously-moved profile means a recent change.
	if p.BucketChangeCount > 0 && p.DaysInCurrentBucket < c.CooldownPeriodDays {
		return false
	}
	if recentChanges >= c.MaxBucketChangesPerMonth {
		return false
	}
	return true
}

// promotionScore weighs the candidate tier's requirements: 40% error rate,
// 30% accuracy, 15% consistency, 15% positive trend. Capped at 1.0.
func promotionScore(next bucket.Level, m quality.Metrics) float64 {
	improving := m.ImprovementTrend
	if improving < 0.0 {
		improving = 0.0
	}
	score := 0.4*errorRateScore(next, clamp01(m.AverageErrorRate)) +
		0.3*accuracyScore(next, clamp01(m.AverageCorrectionAccuracy)) +
		0.15*clamp01(m.ConsistencyScore) +
		0.15*improving
	if score > 1.0 {
		return 1.0
	}
	return score
}

// demotionScore measures how far the speaker has fallen below the *current*
// tier's requirements: up to 0.5 for error rate overshoot, 0.3 for an
// accuracy shortfall, 0.2 for inconsistency. Capped at 1.0.
func demotionScore(current bucket.Level, m quality.Metrics) float64 {
	errCeiling := errorRateCeiling[current]
	accFloor := accuracyFloor[current]
	conFloor := consistencyFloor[current]

	score := capAt(0.5, overshoot(clamp01(m.AverageErrorRate)-errCeiling, errCeiling)) +
		capAt(0.3, overshoot(accFloor-clamp01(m.AverageCorrectionAccuracy), accFloor)) +
		capAt(0.2, overshoot(conFloor-clamp01(m.ConsistencyScore), conFloor))
	if score > 1.0 {
		return 1.0
	}
	return score
}

// overshoot normalizes a threshold breach into a non-negative ratio.
func overshoot(excess, threshold float64) float64 {
	if excess <= 0.0 || threshold <= 0.0 {
		return 0.0
	}
	return excess / threshold
}

func capAt(limit, v float64) float64 {
	if v > limit {
		return limit
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}
