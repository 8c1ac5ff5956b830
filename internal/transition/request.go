// Package transition models a proposed tier change and its approval
// lifecycle. A request leaves Pending exactly once; every terminal state is
// immutable.
package transition

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/speechops/grader/internal/bucket"
)

// Status is the approval state of a request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is one of the four defined states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s Status) Terminal() bool {
	return s.Valid() && s != StatusPending
}

var (
	// ErrSameBucket rejects a request whose source and target tiers match.
	ErrSameBucket = errors.New("from and to buckets are identical")

	// ErrNotAdjacent rejects a multi-tier jump; transitions move one
	// neighbor at a time.
	ErrNotAdjacent = errors.New("target bucket is not an immediate neighbor of the current bucket")
)

// InvalidStateTransitionError reports a mutation attempted on a request that
// already left Pending.
type InvalidStateTransitionError struct {
	Current   Status
	Attempted string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a request in state %q", e.Attempted, e.Current)
}

// Request is a proposed tier change awaiting human review.
type Request struct {
	ID             uuid.UUID    `json:"id"`
	SpeakerID      uuid.UUID    `json:"speaker_id"`
	FromBucket     bucket.Level `json:"from_bucket"`
	ToBucket       bucket.Level `json:"to_bucket"`
	Reason         string       `json:"reason"`
	SERImprovement *float64     `json:"ser_improvement,omitempty"`
	RequestedBy    *uuid.UUID   `json:"requested_by,omitempty"` // nil for system-generated requests
	ApprovedBy     *uuid.UUID   `json:"approved_by,omitempty"`
	Status         Status       `json:"status"`
	ApprovalNotes  string       `json:"approval_notes,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	ApprovedAt     *time.Time   `json:"approved_at,omitempty"`
}

// New validates and creates a Pending request.
func New(speakerID uuid.UUID, from, to bucket.Level, reason string, serImprovement *float64, requestedBy *uuid.UUID, now time.Time) (*Request, error) {
	if from == to {
		return nil, ErrSameBucket
	}
	if !from.AdjacentTo(to) {
		return nil, ErrNotAdjacent
	}
	return &Request{
		ID:             uuid.New(),
		SpeakerID:      speakerID,
		FromBucket:     from,
		ToBucket:       to,
		Reason:         reason,
		SERImprovement: serImprovement,
		RequestedBy:    requestedBy,
		Status:         StatusPending,
		CreatedAt:      now,
	}, nil
}

// Validate checks the field invariants when reconstructing from storage.
func (r *Request) Validate() error {
	if r.ID == uuid.Nil {
		return errors.New("request id is required")
	}
	if r.SpeakerID == uuid.Nil {
		return errors.New("speaker id is required")
	}
	if r.FromBucket == r.ToBucket {
		return ErrSameBucket
	}
	if !r.FromBucket.AdjacentTo(r.ToBucket) {
		return ErrNotAdjacent
	}
	if !r.Status.Valid() {
		return fmt.Errorf("unknown status %q", r.Status)
	}
	return nil
}

// IsDemotion reports whether the request moves the speaker to a
// lower-quality (more manual-touch) tier.
func (r *Request) IsDemotion() bool {
	return r.FromBucket.Better(r.ToBucket)
}

// IsPromotion reports whether the request moves the speaker to a
// higher-quality tier.
func (r *Request) IsPromotion() bool {
	return r.ToBucket.Better(r.FromBucket)
}

// Urgent flags degradation transitions for reviewer attention.
func (r *Request) Urgent() bool {
	return r.IsDemotion()
}

// Approve moves the request to Approved. Legal only from Pending; the
// orchestrator applies the tier change to the profile afterwards.
func (r *Request) Approve(approverID uuid.UUID, notes string, now time.Time) error {
	if r.Status != StatusPending {
		return &InvalidStateTransitionError{Current: r.Status, Attempted: "approve"}
	}
	r.Status = StatusApproved
	r.ApprovedBy = &approverID
	r.ApprovalNotes = notes
	at := now
	r.ApprovedAt = &at
	return nil
}

// Reject moves the request to Rejected. Legal only from Pending; no profile
// mutation follows.
func (r *Request) Reject(reviewerID uuid.UUID, reason string, now time.Time) error {
	if r.Status != StatusPending {
		return &InvalidStateTransitionError{Current: r.Status, Attempted: "reject"}
	}
	r.Status = StatusRejected
	r.ApprovedBy = &reviewerID
	r.ApprovalNotes = reason
	return nil
}

// Cancel withdraws a Pending request.
func (r *Request) Cancel(actorID uuid.UUID, reason string, now time.Time) error {
	if r.Status != StatusPending {
		return &InvalidStateTransitionError{Current: r.Status, Attempted: "cancel"}
	}
	r.Status = StatusCancelled
	r.ApprovedBy = &actorID
	r.ApprovalNotes = reason
	return nil
}

// PriorityScore orders the approval queue; lower is more urgent. Demotions
// lead, promotions follow, and a large SER improvement pulls a request
// forward. Floored at 1.
func (r *Request) PriorityScore() int {
	score := 5
	switch {
	case r.IsDemotion():
		score = 1
	case r.IsPromotion():
		score = 3
	}
	if r.SERImprovement != nil {
		switch {
		case *r.SERImprovement >= 20.0:
			score -= 2
		case *r.SERImprovement >= 10.0:
			score -= 1
		}
	}
	if score < 1 {
		return 1
	}
	return score
}
