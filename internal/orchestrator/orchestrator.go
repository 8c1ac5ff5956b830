// Package orchestrator runs the tier-transition workflow: it evaluates the
// speaker population, creates and resolves transition requests, and applies
// approved changes back onto profiles.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/speechops/grader/internal/bucket"
	"github.com/speechops/grader/internal/progression"
	"github.com/speechops/grader/internal/quality"
	"github.com/speechops/grader/internal/speaker"
	"github.com/speechops/grader/internal/transition"
)

// NATS subjects for transition lifecycle events.
const (
	SubjectRequested = "speech.grader.transition.requested"
	SubjectApproved  = "speech.grader.transition.approved"
	SubjectRejected  = "speech.grader.transition.rejected"
	SubjectCancelled = "speech.grader.transition.cancelled"
)

const (
	defaultParallelism = 8
	// changeCountWindow is the lookback for the monthly change cap.
	changeCountWindow = 30 * 24 * time.Hour
)

// Orchestrator coordinates the engine, the repositories, and the approval
// workflow. Safe for concurrent use; request creation is serialized per
// speaker, different speakers proceed independently.
type Orchestrator struct {
	profiles    ProfileRepo
	requests    RequestRepo
	reports     ReportRepo
	bus         Publisher // optional
	criteria    progression.Criteria
	parallelism int
	logger      *slog.Logger
	now         func() time.Time

	mu           sync.Mutex
	speakerLocks map[uuid.UUID]*sync.Mutex
}

// New creates an orchestrator. bus may be nil when no event bus is
// configured; parallelism <= 0 falls back to the default.
func New(profiles ProfileRepo, requests RequestRepo, reports ReportRepo, bus Publisher, criteria progression.Criteria, parallelism int, logger *slog.Logger) *Orchestrator {
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}
	return &Orchestrator{
		profiles:     profiles,
		requests:     requests,
		reports:      reports,
		bus:          bus,
		criteria:     criteria,
		parallelism:  parallelism,
		logger:       logger,
		now:          time.Now,
		speakerLocks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// lockSpeaker serializes check-pending + create-request per speaker.
func (o *Orchestrator) lockSpeaker(id uuid.UUID) func() {
	o.mu.Lock()
	l, ok := o.speakerLocks[id]
	if !ok {
		l = &sync.Mutex{}
		o.speakerLocks[id] = l
	}
	o.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// IngestReport persists a correction report and refreshes the speaker's
// profile, creating it at HighTouch on first contact.
func (o *Orchestrator) IngestReport(ctx context.Context, report quality.CorrectionReport) (*speaker.Profile, error) {
	if report.SpeakerID == uuid.Nil {
		return nil, fmt.Errorf("speaker id is required")
	}
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = o.now()
	}

	unlock := o.lockSpeaker(report.SpeakerID)
	defer unlock()

	if err := o.reports.SaveReport(ctx, report); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}

	prof, err := o.profiles.Profile(ctx, report.SpeakerID)
	switch {
	case errors.Is(err, ErrNotFound):
		prof = speaker.NewProfile(report.SpeakerID, o.now())
	case err != nil:
		return nil, fmt.Errorf("load profile %s: %w", report.SpeakerID, err)
	}

	history, err := o.reports.ReportsForSpeaker(ctx, report.SpeakerID)
	if err != nil {
		return nil, fmt.Errorf("load reports for %s: %w", report.SpeakerID, err)
	}

	prof.UpdateMetrics(quality.Aggregate(history, o.now()), o.now())
	if err := o.profiles.SaveProfile(ctx, prof); err != nil {
		return nil, fmt.Errorf("save profile %s: %w", report.SpeakerID, err)
	}
	return prof, nil
}

// CreateRequest opens a Pending transition request for a speaker. The target
// must be an immediate neighbor of the speaker's current tier, and at most
// one Pending request may exist per speaker.
func (o *Orchestrator) CreateRequest(ctx context.Context, speakerID uuid.UUID, to bucket.Level, reason string, serImprovement *float64, requestedBy *uuid.UUID) (*transition.Request, error) {
	unlock := o.lockSpeaker(speakerID)
	defer unlock()

	prof, err := o.profiles.Profile(ctx, speakerID)
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", speakerID, err)
	}

	pending, err := o.requests.PendingForSpeaker(ctx, speakerID)
	if err != nil {
		return nil, fmt.Errorf("check pending for %s: %w", speakerID, err)
	}
	if pending != nil {
		return nil, ErrPendingExists
	}

	req, err := transition.New(speakerID, prof.CurrentBucket, to, reason, serImprovement, requestedBy, o.now())
	if err != nil {
		return nil, err
	}

	if err := o.requests.SaveRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("save request: %w", err)
	}

	o.publish(SubjectRequested, req)
	o.logger.Info("transition request created",
		"request_id", req.ID,
		"speaker_id", speakerID,
		"from", req.FromBucket.String(),
		"to", req.ToBucket.String(),
		"urgent", req.Urgent(),
	)
	return req, nil
}

// ScanResult summarizes one batch evaluation pass over the population.
type ScanResult struct {
	Evaluated int `json:"evaluated"`
	Created   int `json:"created"`
	Skipped   int `json:"skipped"` // existing pending request
	Errors    int `json:"errors"`
}

// AutoGenerate evaluates every profile flagged for evaluation and opens
// system-originated requests where the engine recommends a move. Speakers
// are evaluated in parallel; a failure on one speaker is logged and does not
// abort the batch. With dryRun set, no requests are written.
func (o *Orchestrator) AutoGenerate(ctx context.Context, dryRun bool) (ScanResult, error) {
	population, err := o.profiles.ProfilesForEvaluation(ctx)
	if err != nil {
		return ScanResult{}, fmt.Errorf("list profiles for evaluation: %w", err)
	}

	var evaluated, created, skipped, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parallelism)
	for _, prof := range population {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome, err := o.evaluateSpeaker(gctx, prof, dryRun)
			if err != nil {
				failed.Add(1)
				o.logger.Error("speaker evaluation failed", "speaker_id", prof.SpeakerID, "error", err)
				return nil
			}
			evaluated.Add(1)
			switch outcome {
			case outcomeCreated:
				created.Add(1)
			case outcomeSkipped:
				skipped.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ScanResult{}, err
	}

	res := ScanResult{
		Evaluated: int(evaluated.Load()),
		Created:   int(created.Load()),
		Skipped:   int(skipped.Load()),
		Errors:    int(failed.Load()),
	}
	o.logger.Info("population scan complete",
		"evaluated", res.Evaluated,
		"created", res.Created,
		"skipped", res.Skipped,
		"errors", res.Errors,
		"dry_run", dryRun,
	)
	return res, nil
}

type scanOutcome int

const (
	outcomeStable scanOutcome = iota
	outcomeCreated
	outcomeSkipped
)

func (o *Orchestrator) evaluateSpeaker(ctx context.Context, prof speaker.Profile, dryRun bool) (scanOutcome, error) {
	unlock := o.lockSpeaker(prof.SpeakerID)
	defer unlock()

	pending, err := o.requests.PendingForSpeaker(ctx, prof.SpeakerID)
	if err != nil {
		return outcomeStable, fmt.Errorf("check pending: %w", err)
	}
	if pending != nil {
		return outcomeSkipped, nil
	}

	history, err := o.reports.ReportsForSpeaker(ctx, prof.SpeakerID)
	if err != nil {
		return outcomeStable, fmt.Errorf("load reports: %w", err)
	}

	recentChanges, err := o.requests.CountApprovedSince(ctx, prof.SpeakerID, o.now().Add(-changeCountWindow))
	if err != nil {
		return outcomeStable, fmt.Errorf("count recent changes: %w", err)
	}

	rec := progression.Evaluate(prof, history, recentChanges, o.criteria, o.now())
	if rec.Direction == progression.Stable {
		return outcomeStable, nil
	}
	if dryRun {
		o.logger.Info("would create transition request",
			"speaker_id", prof.SpeakerID,
			"direction", string(rec.Direction),
			"to", rec.RecommendedBucket.String(),
			"confidence", rec.Confidence,
		)
		return outcomeCreated, nil
	}

	// System-originated requests carry a nil requester; a positive trend
	// is surfaced as a SER improvement percentage for queue ordering.
	var ser *float64
	if rec.Metrics.ImprovementTrend > 0.0 {
		v := rec.Metrics.ImprovementTrend * 100.0
		ser = &v
	}

	req, err := transition.New(prof.SpeakerID, prof.CurrentBucket, rec.RecommendedBucket, rec.Reason, ser, nil, o.now())
	if err != nil {
		return outcomeStable, fmt.Errorf("build request: %w", err)
	}
	if err := o.requests.SaveRequest(ctx, req); err != nil {
		return outcomeStable, fmt.Errorf("save request: %w", err)
	}

	o.publish(SubjectRequested, req)
	o.logger.Info("transition request auto-generated",
		"request_id", req.ID,
		"speaker_id", prof.SpeakerID,
		"direction", string(rec.Direction),
		"confidence", rec.Confidence,
	)
	return outcomeCreated, nil
}

// RunDaily advances every profile's tier clock and then scans the
// population. Intended to run once a day from the scheduler.
func (o *Orchestrator) RunDaily(ctx context.Context) (ScanResult, error) {
	n, err := o.profiles.AdvanceDays(ctx)
	if err != nil {
		return ScanResult{}, fmt.Errorf("advance tier clocks: %w", err)
	}
	o.logger.Info("tier clocks advanced", "profiles", n)
	return o.AutoGenerate(ctx, false)
}

// Approve resolves a Pending request and applies the tier change to the
// speaker's profile. Approving an already-terminal request fails with
// transition.InvalidStateTransitionError, never silently succeeds.
func (o *Orchestrator) Approve(ctx context.Context, requestID, approverID uuid.UUID, notes string) (*transition.Request, error) {
	req, err := o.requests.Request(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("load request %s: %w", requestID, err)
	}
	if err := req.Approve(approverID, notes, o.now()); err != nil {
		return nil, err
	}
	if err := o.requests.SaveRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("save request %s: %w", requestID, err)
	}

	prof, err := o.profiles.Profile(ctx, req.SpeakerID)
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", req.SpeakerID, err)
	}
	if err := prof.ChangeBucket(req.ToBucket, o.now()); err != nil {
		return nil, fmt.Errorf("apply bucket change: %w", err)
	}
	if err := o.profiles.SaveProfile(ctx, prof); err != nil {
		return nil, fmt.Errorf("save profile %s: %w", req.SpeakerID, err)
	}

	o.publish(SubjectApproved, req)
	o.logger.Info("transition approved",
		"request_id", req.ID,
		"speaker_id", req.SpeakerID,
		"to", req.ToBucket.String(),
		"approved_by", approverID,
	)
	return req, nil
}

// Reject resolves a Pending request without touching the profile.
func (o *Orchestrator) Reject(ctx context.Context, requestID, reviewerID uuid.UUID, reason string) (*transition.Request, error) {
	req, err := o.requests.Request(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("load request %s: %w", requestID, err)
	}
	if err := req.Reject(reviewerID, reason, o.now()); err != nil {
		return nil, err
	}
	if err := o.requests.SaveRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("save request %s: %w", requestID, err)
	}

	o.publish(SubjectRejected, req)
	o.logger.Info("transition rejected", "request_id", req.ID, "speaker_id", req.SpeakerID, "reviewed_by", reviewerID)
	return req, nil
}

// Cancel withdraws a Pending request.
func (o *Orchestrator) Cancel(ctx context.Context, requestID, actorID uuid.UUID, reason string) (*transition.Request, error) {
	req, err := o.requests.Request(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("load request %s: %w", requestID, err)
	}
	if err := req.Cancel(actorID, reason, o.now()); err != nil {
		return nil, err
	}
	if err := o.requests.SaveRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("save request %s: %w", requestID, err)
	}

	o.publish(SubjectCancelled, req)
	o.logger.Info("transition cancelled", "request_id", req.ID, "speaker_id", req.SpeakerID)
	return req, nil
}

// ListPending returns the approval queue, most urgent first.
func (o *Orchestrator) ListPending(ctx context.Context) ([]transition.Request, error) {
	pending, err := o.requests.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	sort.SliceStable(pending, func(i, j int) bool {
		pi, pj := pending[i].PriorityScore(), pending[j].PriorityScore()
		if pi != pj {
			return pi < pj
		}
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	return pending, nil
}

// History returns every request ever made for a speaker, newest first.
func (o *Orchestrator) History(ctx context.Context, speakerID uuid.UUID) ([]transition.Request, error) {
	history, err := o.requests.BySpeaker(ctx, speakerID)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", speakerID, err)
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].CreatedAt.After(history[j].CreatedAt)
	})
	return history, nil
}

func (o *Orchestrator) publish(subject string, req *transition.Request) {
	if o.bus == nil {
		return
	}
	err := o.bus.Publish(subject, map[string]any{
		"request_id":  req.ID.String(),
		"speaker_id":  req.SpeakerID.String(),
		"from_bucket": req.FromBucket.String(),
		"to_bucket":   req.ToBucket.String(),
		"status":      string(req.Status),
		"urgent":      req.Urgent(),
	})
	if err != nil {
		o.logger.Error("failed to publish transition event", "subject", subject, "error", err)
	}
}
