package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/speechops/grader/internal/bucket"
	"github.com/speechops/grader/internal/orchestrator"
	"github.com/speechops/grader/internal/speaker"
)

// Profile fetches a speaker's profile by speaker ID.
func (s *Store) Profile(ctx context.Context, speakerID uuid.UUID) (*speaker.Profile, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT speaker_id, current_bucket, total_reports, total_errors_found, total_corrections_made,
		       average_error_rate, average_correction_accuracy, last_report_time,
		       bucket_change_count, days_in_current_bucket, created_at, updated_at
		FROM speaker_profiles
		WHERE speaker_id = $1`,
		speakerID,
	)
	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orchestrator.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	return p, nil
}

// ProfilesForEvaluation returns every profile, ordered by speaker ID so
// batch runs walk the population in a stable order.
func (s *Store) ProfilesForEvaluation(ctx context.Context) ([]speaker.Profile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT speaker_id, current_bucket, total_reports, total_errors_found, total_corrections_made,
		       average_error_rate, average_correction_accuracy, last_report_time,
		       bucket_change_count, days_in_current_bucket, created_at, updated_at
		FROM speaker_profiles
		ORDER BY speaker_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var out []speaker.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// SaveProfile upserts a profile keyed by speaker ID.
func (s *Store) SaveProfile(ctx context.Context, p *speaker.Profile) error {
	var lastReport *time.Time
	if !p.LastReportTime.IsZero() {
		lastReport = &p.LastReportTime
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO speaker_profiles (speaker_id, current_bucket, total_reports, total_errors_found, total_corrections_made,
		                              average_error_rate, average_correction_accuracy, last_report_time,
		                              bucket_change_count, days_in_current_bucket, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (speaker_id)
		DO UPDATE SET
			current_bucket = $2,
			total_reports = $3,
			total_errors_found = $4,
			total_corrections_made = $5,
			average_error_rate = $6,
			average_correction_accuracy = $7,
			last_report_time = $8,
			bucket_change_count = $9,
			days_in_current_bucket = $10,
			updated_at = $12`,
		p.SpeakerID, p.CurrentBucket.String(), p.TotalReports, p.TotalErrorsFound, p.TotalCorrectionsMade,
		p.AverageErrorRate, p.AverageCorrectionAccuracy, lastReport,
		p.BucketChangeCount, p.DaysInCurrentBucket, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// AdvanceDays bumps every profile's tier clock by one day and reports how
// many profiles were touched.
func (s *Store) AdvanceDays(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE speaker_profiles
		SET days_in_current_bucket = days_in_current_bucket + 1, updated_at = now()`,
	)
	if err != nil {
		return 0, fmt.Errorf("advance tier clocks: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanProfile(row pgx.Row) (*speaker.Profile, error) {
	var (
		p          speaker.Profile
		rawBucket  string
		lastReport *time.Time
	)
	err := row.Scan(&p.SpeakerID, &rawBucket, &p.TotalReports, &p.TotalErrorsFound, &p.TotalCorrectionsMade,
		&p.AverageErrorRate, &p.AverageCorrectionAccuracy, &lastReport,
		&p.BucketChangeCount, &p.DaysInCurrentBucket, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.CurrentBucket, err = bucket.Parse(rawBucket)
	if err != nil {
		return nil, fmt.Errorf("stored bucket %q: %w", rawBucket, err)
	}
	if lastReport != nil {
		p.LastReportTime = *lastReport
	}
	return &p, nil
}
