package quality

import (
	"sort"
	"time"
)

// recentWindow bounds the trailing-activity counters.
const recentWindow = 30 * 24 * time.Hour

// Metrics is an immutable snapshot of a speaker's rolling quality numbers.
// All rates live in [0,1]; ImprovementTrend lives in [-1,1].
type Metrics struct {
	TotalReports              int       `json:"total_reports"`
	ErrorsFound               int       `json:"errors_found"`
	CorrectionsMade           int       `json:"corrections_made"`
	AverageErrorRate          float64   `json:"average_error_rate"`
	AverageCorrectionAccuracy float64   `json:"average_correction_accuracy"`
	ReportsLast30Days         int       `json:"reports_last_30_days"`
	ConsistencyScore          float64   `json:"consistency_score"`
	ImprovementTrend          float64   `json:"improvement_trend"`
	LastReportTime            time.Time `json:"last_report_time,omitzero"`
}

// Aggregate reduces a report sequence into a Metrics snapshot relative to
// now. Pure and total: an empty input yields the zero snapshot, never an
// error, and every rate is clamped before it leaves this function.
func Aggregate(reports []CorrectionReport, now time.Time) Metrics {
	if len(reports) == 0 {
		return Metrics{}
	}

	m := Metrics{TotalReports: len(reports)}
	rates := make([]float64, len(reports))
	cutoff := now.Add(-recentWindow)
	var rateSum, accSum float64

	for i, r := range reports {
		if len(r.ErrorCategories) > 0 {
			m.ErrorsFound++
		}
		if r.CorrectedText != "" {
			m.CorrectionsMade++
		}
		rates[i] = r.ErrorRate()
		rateSum += rates[i]
		accSum += r.CorrectionAccuracy()
		if !r.CreatedAt.Before(cutoff) {
			m.ReportsLast30Days++
		}
		if r.CreatedAt.After(m.LastReportTime) {
			m.LastReportTime = r.CreatedAt
		}
	}

	n := float64(len(reports))
	m.AverageErrorRate = clamp01(rateSum / n)
	m.AverageCorrectionAccuracy = clamp01(accSum / n)
	m.ConsistencyScore = consistency(rates)
	m.ImprovementTrend = trend(reports)
	return m
}

// consistency is 1 - variance of per-report error rates, floored at 0.
// With fewer than two reports there is nothing to vary against.
func consistency(rates []float64) float64 {
	if len(rates) < 2 {
		return 1.0
	}

	n := float64(len(rates))
	var mean float64
	for _, r := range rates {
		mean += r
	}
	mean /= n

	var variance float64
	for _, r := range rates {
		d := r - mean
		variance += d * d
	}
	variance /= n

	return clamp01(1.0 - variance)
}

// trend compares the earliest and most recent thirds of the chronologically
// sorted history: positive means the error rate is falling. Requires at
// least three reports; a zero early average yields 0 rather than dividing.
func trend(reports []CorrectionReport) float64 {
	if len(reports) < 3 {
		return 0.0
	}

	sorted := make([]CorrectionReport, len(reports))
	copy(sorted, reports)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	third := len(sorted) / 3
	earlyAvg := avgErrorRate(sorted[:third])
	recentAvg := avgErrorRate(sorted[len(sorted)-third:])

	if earlyAvg == 0.0 {
		return 0.0
	}

	t := (earlyAvg - recentAvg) / earlyAvg
	if t < -1.0 {
		return -1.0
	}
	if t > 1.0 {
		return 1.0
	}
	return t
}

func avgErrorRate(reports []CorrectionReport) float64 {
	if len(reports) == 0 {
		return 0.0
	}
	var sum float64
	for _, r := range reports {
		sum += r.ErrorRate()
	}
	return sum / float64(len(reports))
}
