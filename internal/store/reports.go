package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/speechops/grader/internal/quality"
)

// ReportsForSpeaker returns a speaker's full correction history, oldest
// first.
func (s *Store) ReportsForSpeaker(ctx context.Context, speakerID uuid.UUID) ([]quality.CorrectionReport, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, speaker_id, original_text, corrected_text, error_categories, severity_level, context_notes, created_at
		FROM correction_reports
		WHERE speaker_id = $1
		ORDER BY created_at`,
		speakerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var out []quality.CorrectionReport
	for rows.Next() {
		var r quality.CorrectionReport
		err := rows.Scan(&r.ID, &r.SpeakerID, &r.OriginalText, &r.CorrectedText,
			&r.ErrorCategories, &r.SeverityLevel, &r.ContextNotes, &r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveReport inserts a correction report.
func (s *Store) SaveReport(ctx context.Context, r quality.CorrectionReport) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO correction_reports (id, speaker_id, original_text, corrected_text, error_categories, severity_level, context_notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.SpeakerID, r.OriginalText, r.CorrectedText, r.ErrorCategories, r.SeverityLevel, r.ContextNotes, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}
