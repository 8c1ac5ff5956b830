package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/speechops/grader/internal/quality"
	"github.com/speechops/grader/internal/speaker"
	"github.com/speechops/grader/internal/transition"
)

var (
	// ErrNotFound is returned for unknown speaker or request IDs.
	// Repository implementations map their missing-row errors onto it.
	ErrNotFound = errors.New("not found")

	// ErrPendingExists guards the one-pending-request-per-speaker
	// invariant at the use-case boundary; the store backs it with a
	// partial unique index as the second line of defence.
	ErrPendingExists = errors.New("speaker already has a pending transition request")
)

// ProfileRepo is the persistence port for speaker quality profiles.
type ProfileRepo interface {
	Profile(ctx context.Context, speakerID uuid.UUID) (*speaker.Profile, error)
	// ProfilesForEvaluation returns the population a batch scan should
	// consider; the engine applies the real eligibility gates.
	ProfilesForEvaluation(ctx context.Context) ([]speaker.Profile, error)
	SaveProfile(ctx context.Context, p *speaker.Profile) error
	// AdvanceDays bumps every profile's tier clock by one day and
	// returns the number of profiles touched.
	AdvanceDays(ctx context.Context) (int, error)
}

// RequestRepo is the persistence port for transition requests.
type RequestRepo interface {
	Request(ctx context.Context, id uuid.UUID) (*transition.Request, error)
	// PendingForSpeaker returns (nil, nil) when the speaker has no
	// pending request.
	PendingForSpeaker(ctx context.Context, speakerID uuid.UUID) (*transition.Request, error)
	ListPending(ctx context.Context) ([]transition.Request, error)
	BySpeaker(ctx context.Context, speakerID uuid.UUID) ([]transition.Request, error)
	CountApprovedSince(ctx context.Context, speakerID uuid.UUID, since time.Time) (int, error)
	SaveRequest(ctx context.Context, r *transition.Request) error
}

// ReportRepo is the persistence port for correction reports.
type ReportRepo interface {
	ReportsForSpeaker(ctx context.Context, speakerID uuid.UUID) ([]quality.CorrectionReport, error)
	SaveReport(ctx context.Context, r quality.CorrectionReport) error
}

// Publisher emits transition lifecycle events onto the platform bus.
type Publisher interface {
	Publish(subject string, data any) error
}
