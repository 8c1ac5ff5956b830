// Package quality reduces a speaker's correction history into rolling
// quality metrics.
package quality

import (
	"time"

	"github.com/google/uuid"
)

// CorrectionReport is one historical correction of a speaker's output.
// Reports are produced upstream and consumed here as an opaque sequence.
type CorrectionReport struct {
	ID              uuid.UUID `json:"id"`
	SpeakerID       uuid.UUID `json:"speaker_id"`
	OriginalText    string    `json:"original_text"`
	CorrectedText   string    `json:"corrected_text"`
	ErrorCategories []string  `json:"error_categories"`
	SeverityLevel   string    `json:"severity_level,omitempty"`
	ContextNotes    string    `json:"context_notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// ErrorRate is the per-report error-rate proxy: the length difference
// between original and corrected text over the longer of the two.
// A coarse proxy, not an edit distance; kept because changing it would
// alter classification outcomes.
func (r CorrectionReport) ErrorRate() float64 {
	lo, lc := len(r.OriginalText), len(r.CorrectedText)
	longest := lo
	if lc > longest {
		longest = lc
	}
	if longest == 0 {
		return 0.0
	}
	diff := lo - lc
	if diff < 0 {
		diff = -diff
	}
	return clamp01(float64(diff) / float64(longest))
}

// CorrectionAccuracy is the per-report accuracy proxy: base 0.5, +0.2 for a
// corrected text, +0.1 each for context notes, error categorization, and a
// severity tag, capped at 1.0.
func (r CorrectionReport) CorrectionAccuracy() float64 {
	score := 0.5
	if r.CorrectedText != "" {
		score += 0.2
	}
	if r.ContextNotes != "" {
		score += 0.1
	}
	if len(r.ErrorCategories) > 0 {
		score += 0.1
	}
	if r.SeverityLevel != "" {
		score += 0.1
	}
	return clamp01(score)
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
