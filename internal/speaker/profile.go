// Package speaker holds the durable per-speaker quality state.
package speaker

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/speechops/grader/internal/bucket"
	"github.com/speechops/grader/internal/quality"
)

// ErrSameBucket rejects a tier change into the tier the profile already holds.
var ErrSameBucket = errors.New("profile is already in the requested bucket")

// Profile is the mutable per-speaker aggregate: current tier, rolling
// counters, and the tier clock. One exists per speaker, created on first
// report ingestion.
type Profile struct {
	SpeakerID                 uuid.UUID    `json:"speaker_id"`
	CurrentBucket             bucket.Level `json:"current_bucket"`
	TotalReports              int          `json:"total_reports"`
	TotalErrorsFound          int          `json:"total_errors_found"`
	TotalCorrectionsMade      int          `json:"total_corrections_made"`
	AverageErrorRate          float64      `json:"average_error_rate"`
	AverageCorrectionAccuracy float64      `json:"average_correction_accuracy"`
	LastReportTime            time.Time    `json:"last_report_time,omitzero"`
	BucketChangeCount         int          `json:"bucket_change_count"`
	DaysInCurrentBucket       int          `json:"days_in_current_bucket"`
	CreatedAt                 time.Time    `json:"created_at"`
	UpdatedAt                 time.Time    `json:"updated_at"`
}

// NewProfile creates the profile for a speaker's first report. New speakers
// start at HighTouch until the engine has evidence to move them.
func NewProfile(speakerID uuid.UUID, now time.Time) *Profile {
	return &Profile{
		SpeakerID:     speakerID,
		CurrentBucket: bucket.HighTouch,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// UpdateMetrics refreshes the rolling counters from a fresh aggregation.
func (p *Profile) UpdateMetrics(m quality.Metrics, now time.Time) {
	p.TotalReports = m.TotalReports
	p.TotalErrorsFound = m.ErrorsFound
	p.TotalCorrectionsMade = m.CorrectionsMade
	p.AverageErrorRate = m.AverageErrorRate
	p.AverageCorrectionAccuracy = m.AverageCorrectionAccuracy
	if !m.LastReportTime.IsZero() {
		p.LastReportTime = m.LastReportTime
	}
	p.UpdatedAt = now
}

// ChangeBucket moves the profile to a new tier and resets the tier clock.
// Adjacency is the orchestrator's concern; the profile only refuses a no-op.
func (p *Profile) ChangeBucket(to bucket.Level, now time.Time) error {
	if !to.Valid() {
		return fmt.Errorf("invalid bucket level %d", int(to))
	}
	if to == p.CurrentBucket {
		return ErrSameBucket
	}
	p.CurrentBucket = to
	p.DaysInCurrentBucket = 0
	p.BucketChangeCount++
	p.UpdatedAt = now
	return nil
}

// Validate checks the profile's field invariants, used when reconstructing
// from storage or external input.
func (p *Profile) Validate() error {
	if p.SpeakerID == uuid.Nil {
		return errors.New("speaker id is required")
	}
	if !p.CurrentBucket.Valid() {
		return fmt.Errorf("invalid bucket level %d", int(p.CurrentBucket))
	}
	if p.AverageErrorRate < 0.0 || p.AverageErrorRate > 1.0 {
		return fmt.Errorf("average error rate %f outside [0,1]", p.AverageErrorRate)
	}
	if p.AverageCorrectionAccuracy < 0.0 || p.AverageCorrectionAccuracy > 1.0 {
		return fmt.Errorf("average correction accuracy %f outside [0,1]", p.AverageCorrectionAccuracy)
	}
	if p.TotalReports < 0 || p.TotalErrorsFound < 0 || p.TotalCorrectionsMade < 0 {
		return errors.New("report counters must be non-negative")
	}
	if p.BucketChangeCount < 0 || p.DaysInCurrentBucket < 0 {
		return errors.New("bucket counters must be non-negative")
	}
	return nil
}
