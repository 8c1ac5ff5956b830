// Package api exposes the transition workflow over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/speechops/grader/internal/bucket"
	"github.com/speechops/grader/internal/orchestrator"
	"github.com/speechops/grader/internal/quality"
	"github.com/speechops/grader/internal/speaker"
	"github.com/speechops/grader/internal/transition"
)

// Service is the workflow surface the handlers call into.
type Service interface {
	IngestReport(ctx context.Context, report quality.CorrectionReport) (*speaker.Profile, error)
	CreateRequest(ctx context.Context, speakerID uuid.UUID, to bucket.Level, reason string, serImprovement *float64, requestedBy *uuid.UUID) (*transition.Request, error)
	Approve(ctx context.Context, requestID, approverID uuid.UUID, notes string) (*transition.Request, error)
	Reject(ctx context.Context, requestID, reviewerID uuid.UUID, reason string) (*transition.Request, error)
	Cancel(ctx context.Context, requestID, actorID uuid.UUID, reason string) (*transition.Request, error)
	ListPending(ctx context.Context) ([]transition.Request, error)
	History(ctx context.Context, speakerID uuid.UUID) ([]transition.Request, error)
	AutoGenerate(ctx context.Context, dryRun bool) (orchestrator.ScanResult, error)
}

type Server struct {
	router *chi.Mux
	port   int
	svc    Service
	logger *slog.Logger
}

func NewServer(port int, svc Service, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		port:   port,
		svc:    svc,
		logger: logger,
	}

	router.Get("/health", s.health)
	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/reports", s.submitReport)
		r.Route("/transitions", func(r chi.Router) {
			r.Get("/pending", s.listPending)
			r.Post("/", s.createRequest)
			r.Post("/scan", s.scan)
			r.Get("/scan", s.scanDryRun)
			r.Post("/{requestID}/approve", s.approve)
			r.Post("/{requestID}/reject", s.reject)
			r.Post("/{requestID}/cancel", s.cancel)
		})
		r.Get("/speakers/{speakerID}/transitions", s.history)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}

// writeWorkflowError maps domain errors onto HTTP statuses.
func writeWorkflowError(w http.ResponseWriter, err error) {
	var ist *transition.InvalidStateTransitionError
	switch {
	case errors.Is(err, orchestrator.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, orchestrator.ErrPendingExists):
		writeError(w, http.StatusConflict, "speaker already has a pending transition request")
	case errors.As(err, &ist):
		writeError(w, http.StatusConflict, "%v", ist)
	case errors.Is(err, transition.ErrSameBucket), errors.Is(err, transition.ErrNotAdjacent):
		writeError(w, http.StatusUnprocessableEntity, "%v", err)
	default:
		writeError(w, http.StatusInternalServerError, "%v", err)
	}
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s %q", param, raw)
	}
	return id, nil
}
