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
	"github.com/speechops/grader/internal/transition"
)

const requestColumns = `id, speaker_id, from_bucket, to_bucket, reason, ser_improvement,
	       requested_by, approved_by, status, approval_notes, created_at, approved_at`

// Request fetches a transition request by ID.
func (s *Store) Request(ctx context.Context, id uuid.UUID) (*transition.Request, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM transition_requests
		WHERE id = $1`,
		id,
	)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orchestrator.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan request: %w", err)
	}
	return req, nil
}

// PendingForSpeaker returns the speaker's open request, or nil when the
// speaker has none. A partial unique index on the table guarantees at most
// one row can match.
func (s *Store) PendingForSpeaker(ctx context.Context, speakerID uuid.UUID) (*transition.Request, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM transition_requests
		WHERE speaker_id = $1 AND status = 'pending'`,
		speakerID,
	)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan request: %w", err)
	}
	return req, nil
}

// ListPending returns every open request, oldest first.
func (s *Store) ListPending(ctx context.Context) ([]transition.Request, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+requestColumns+`
		FROM transition_requests
		WHERE status = 'pending'
		ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("query pending requests: %w", err)
	}
	return collectRequests(rows)
}

// BySpeaker returns every request ever made for a speaker.
func (s *Store) BySpeaker(ctx context.Context, speakerID uuid.UUID) ([]transition.Request, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+requestColumns+`
		FROM transition_requests
		WHERE speaker_id = $1
		ORDER BY created_at DESC`,
		speakerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query speaker requests: %w", err)
	}
	return collectRequests(rows)
}

// CountApprovedSince counts the speaker's approved transitions on or after
// the cutoff. Feeds the monthly change cap.
func (s *Store) CountApprovedSince(ctx context.Context, speakerID uuid.UUID, since time.Time) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM transition_requests
		WHERE speaker_id = $1 AND status = 'approved' AND approved_at >= $2`,
		speakerID, since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count approved requests: %w", err)
	}
	return n, nil
}

// SaveRequest upserts a request. Inserting a second pending row for the
// same speaker trips the partial unique index and surfaces as
// orchestrator.ErrPendingExists.
func (s *Store) SaveRequest(ctx context.Context, req *transition.Request) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO transition_requests (id, speaker_id, from_bucket, to_bucket, reason, ser_improvement,
		                                 requested_by, approved_by, status, approval_notes, created_at, approved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id)
		DO UPDATE SET
			approved_by = $8,
			status = $9,
			approval_notes = $10,
			approved_at = $12`,
		req.ID, req.SpeakerID, req.FromBucket.String(), req.ToBucket.String(), req.Reason, req.SERImprovement,
		req.RequestedBy, req.ApprovedBy, string(req.Status), req.ApprovalNotes, req.CreatedAt, req.ApprovedAt,
	)
	if isUniqueViolation(err, "transition_requests_one_pending_per_speaker") {
		return orchestrator.ErrPendingExists
	}
	if err != nil {
		return fmt.Errorf("upsert request: %w", err)
	}
	return nil
}

func scanRequest(row pgx.Row) (*transition.Request, error) {
	var (
		req      transition.Request
		from, to string
		status   string
	)
	err := row.Scan(&req.ID, &req.SpeakerID, &from, &to, &req.Reason, &req.SERImprovement,
		&req.RequestedBy, &req.ApprovedBy, &status, &req.ApprovalNotes, &req.CreatedAt, &req.ApprovedAt)
	if err != nil {
		return nil, err
	}
	if req.FromBucket, err = bucket.Parse(from); err != nil {
		return nil, fmt.Errorf("stored from_bucket %q: %w", from, err)
	}
	if req.ToBucket, err = bucket.Parse(to); err != nil {
		return nil, fmt.Errorf("stored to_bucket %q: %w", to, err)
	}
	req.Status = transition.Status(status)
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("stored request %s: %w", req.ID, err)
	}
	return &req, nil
}

func collectRequests(rows pgx.Rows) ([]transition.Request, error) {
	defer rows.Close()
	var out []transition.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}
