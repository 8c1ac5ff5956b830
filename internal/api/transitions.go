package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/speechops/grader/internal/bucket"
	"github.com/speechops/grader/internal/quality"
)

// CreateTransitionRequest is the payload for POST /api/v1/transitions.
type CreateTransitionRequest struct {
	SpeakerID      string   `json:"speaker_id"`
	ToBucket       string   `json:"to_bucket"`
	Reason         string   `json:"reason"`
	SERImprovement *float64 `json:"ser_improvement,omitempty"`
	RequestedBy    *string  `json:"requested_by,omitempty"`
}

func (s *Server) createRequest(w http.ResponseWriter, r *http.Request) {
	var req CreateTransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: %v", err)
		return
	}

	speakerID, err := uuid.Parse(req.SpeakerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid speaker_id %q", req.SpeakerID)
		return
	}
	to, err := bucket.Parse(req.ToBucket)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	var requestedBy *uuid.UUID
	if req.RequestedBy != nil {
		id, err := uuid.Parse(*req.RequestedBy)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid requested_by %q", *req.RequestedBy)
			return
		}
		requestedBy = &id
	}

	created, err := s.svc.CreateRequest(r.Context(), speakerID, to, req.Reason, req.SERImprovement, requestedBy)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ReviewRequest carries the reviewer's identity and notes for the approve,
// reject, and cancel endpoints.
type ReviewRequest struct {
	ReviewerID string `json:"reviewer_id"`
	Notes      string `json:"notes,omitempty"`
}

func (s *Server) decodeReview(w http.ResponseWriter, r *http.Request) (requestID, reviewerID uuid.UUID, notes string, ok bool) {
	requestID, err := pathUUID(r, "requestID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return uuid.Nil, uuid.Nil, "", false
	}
	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: %v", err)
		return uuid.Nil, uuid.Nil, "", false
	}
	reviewerID, err = uuid.Parse(req.ReviewerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reviewer_id %q", req.ReviewerID)
		return uuid.Nil, uuid.Nil, "", false
	}
	return requestID, reviewerID, req.Notes, true
}

func (s *Server) approve(w http.ResponseWriter, r *http.Request) {
	requestID, reviewerID, notes, ok := s.decodeReview(w, r)
	if !ok {
		return
	}
	req, err := s.svc.Approve(r.Context(), requestID, reviewerID, notes)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) reject(w http.ResponseWriter, r *http.Request) {
	requestID, reviewerID, notes, ok := s.decodeReview(w, r)
	if !ok {
		return
	}
	req, err := s.svc.Reject(r.Context(), requestID, reviewerID, notes)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	requestID, reviewerID, notes, ok := s.decodeReview(w, r)
	if !ok {
		return
	}
	req, err := s.svc.Cancel(r.Context(), requestID, reviewerID, notes)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) listPending(w http.ResponseWriter, r *http.Request) {
	pending, err := s.svc.ListPending(r.Context())
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"requests": pending,
		"count":    len(pending),
	})
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	speakerID, err := pathUUID(r, "speakerID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	history, err := s.svc.History(r.Context(), speakerID)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"requests": history,
		"count":    len(history),
	})
}

// ScanRequest is the payload for POST /api/v1/transitions/scan.
type ScanRequest struct {
	DryRun bool `json:"dry_run"`
}

func (s *Server) scan(w http.ResponseWriter, r *http.Request) {
	req := ScanRequest{}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: %v", err)
			return
		}
	}
	res, err := s.svc.AutoGenerate(r.Context(), req.DryRun)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// scanDryRun handles GET /api/v1/transitions/scan, always a dry run.
func (s *Server) scanDryRun(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.AutoGenerate(r.Context(), true)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SubmitReportRequest is the payload for POST /api/v1/reports.
type SubmitReportRequest struct {
	SpeakerID       string   `json:"speaker_id"`
	OriginalText    string   `json:"original_text"`
	CorrectedText   string   `json:"corrected_text"`
	ErrorCategories []string `json:"error_categories,omitempty"`
	SeverityLevel   string   `json:"severity_level,omitempty"`
	ContextNotes    string   `json:"context_notes,omitempty"`
}

func (s *Server) submitReport(w http.ResponseWriter, r *http.Request) {
	var req SubmitReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: %v", err)
		return
	}
	speakerID, err := uuid.Parse(req.SpeakerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid speaker_id %q", req.SpeakerID)
		return
	}
	if req.OriginalText == "" {
		writeError(w, http.StatusBadRequest, "original_text is required")
		return
	}

	prof, err := s.svc.IngestReport(r.Context(), quality.CorrectionReport{
		SpeakerID:       speakerID,
		OriginalText:    req.OriginalText,
		CorrectedText:   req.CorrectedText,
		ErrorCategories: req.ErrorCategories,
		SeverityLevel:   req.SeverityLevel,
		ContextNotes:    req.ContextNotes,
	})
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, prof)
}
