package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/speechops/grader/internal/bucket"
	"github.com/speechops/grader/internal/orchestrator"
	"github.com/speechops/grader/internal/quality"
	"github.com/speechops/grader/internal/speaker"
	"github.com/speechops/grader/internal/transition"
)

// stubService scripts each workflow call with a canned result.
type stubService struct {
	profile    *speaker.Profile
	request    *transition.Request
	requests   []transition.Request
	scanResult orchestrator.ScanResult
	err        error
}

func (s *stubService) IngestReport(context.Context, quality.CorrectionReport) (*speaker.Profile, error) {
	return s.profile, s.err
}

func (s *stubService) CreateRequest(context.Context, uuid.UUID, bucket.Level, string, *float64, *uuid.UUID) (*transition.Request, error) {
	return s.request, s.err
}

func (s *stubService) Approve(context.Context, uuid.UUID, uuid.UUID, string) (*transition.Request, error) {
	return s.request, s.err
}

func (s *stubService) Reject(context.Context, uuid.UUID, uuid.UUID, string) (*transition.Request, error) {
	return s.request, s.err
}

func (s *stubService) Cancel(context.Context, uuid.UUID, uuid.UUID, string) (*transition.Request, error) {
	return s.request, s.err
}

func (s *stubService) ListPending(context.Context) ([]transition.Request, error) {
	return s.requests, s.err
}

func (s *stubService) History(context.Context, uuid.UUID) ([]transition.Request, error) {
	return s.requests, s.err
}

func (s *stubService) AutoGenerate(context.Context, bool) (orchestrator.ScanResult, error) {
	return s.scanResult, s.err
}

func newTestServer(svc Service) *Server {
	return NewServer(8760, svc, slog.New(slog.DiscardHandler))
}

func sampleRequest(t *testing.T) *transition.Request {
	t.Helper()
	req, err := transition.New(uuid.New(), bucket.MediumTouch, bucket.LowTouch, "test", nil, nil, time.Now())
	if err != nil {
		t.Fatalf("build sample request: %v", err)
	}
	return req
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(&stubService{})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestCreateTransition(t *testing.T) {
	sample := sampleRequest(t)
	srv := newTestServer(&stubService{request: sample})

	payload := `{"speaker_id":"` + sample.SpeakerID.String() + `","to_bucket":"low_touch","reason":"manual review"}`
	req := httptest.NewRequest("POST", "/api/v1/transitions/", strings.NewReader(payload))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var got transition.Request
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ID != sample.ID {
		t.Errorf("expected request %s, got %s", sample.ID, got.ID)
	}
}

func TestCreateTransition_BadPayloads(t *testing.T) {
	srv := newTestServer(&stubService{})

	tests := []struct {
		name    string
		payload string
	}{
		{"broken json", `{`},
		{"bad speaker id", `{"speaker_id":"nope","to_bucket":"low_touch"}`},
		{"unknown bucket", `{"speaker_id":"` + uuid.New().String() + `","to_bucket":"platinum"}`},
		{"bad requester", `{"speaker_id":"` + uuid.New().String() + `","to_bucket":"low_touch","requested_by":"nope"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/transitions/", strings.NewReader(tt.payload))
			w := httptest.NewRecorder()
			srv.router.ServeHTTP(w, req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestWorkflowErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown speaker", orchestrator.ErrNotFound, http.StatusNotFound},
		{"duplicate pending", orchestrator.ErrPendingExists, http.StatusConflict},
		{"terminal request", &transition.InvalidStateTransitionError{Current: transition.StatusApproved, Attempted: "approve"}, http.StatusConflict},
		{"non-neighbor", transition.ErrNotAdjacent, http.StatusUnprocessableEntity},
		{"same bucket", transition.ErrSameBucket, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&stubService{err: tt.err})
			payload := `{"speaker_id":"` + uuid.New().String() + `","to_bucket":"low_touch"}`
			req := httptest.NewRequest("POST", "/api/v1/transitions/", strings.NewReader(payload))
			w := httptest.NewRecorder()
			srv.router.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestApprove(t *testing.T) {
	sample := sampleRequest(t)
	if err := sample.Approve(uuid.New(), "ok", time.Now()); err != nil {
		t.Fatalf("approve sample: %v", err)
	}
	srv := newTestServer(&stubService{request: sample})

	payload := `{"reviewer_id":"` + uuid.New().String() + `","notes":"ok"}`
	req := httptest.NewRequest("POST", "/api/v1/transitions/"+sample.ID.String()+"/approve", strings.NewReader(payload))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var got transition.Request
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Status != transition.StatusApproved {
		t.Errorf("expected approved, got %s", got.Status)
	}
}

func TestApprove_BadRequestID(t *testing.T) {
	srv := newTestServer(&stubService{})

	payload := `{"reviewer_id":"` + uuid.New().String() + `"}`
	req := httptest.NewRequest("POST", "/api/v1/transitions/not-a-uuid/approve", strings.NewReader(payload))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestListPending(t *testing.T) {
	first := sampleRequest(t)
	second := sampleRequest(t)
	srv := newTestServer(&stubService{requests: []transition.Request{*first, *second}})

	req := httptest.NewRequest("GET", "/api/v1/transitions/pending", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Requests []transition.Request `json:"requests"`
		Count    int                  `json:"count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Count != 2 || len(body.Requests) != 2 {
		t.Errorf("expected 2 requests, got count %d, len %d", body.Count, len(body.Requests))
	}
}

func TestScanEndpoints(t *testing.T) {
	srv := newTestServer(&stubService{scanResult: orchestrator.ScanResult{Evaluated: 5, Created: 2, Skipped: 1}})

	t.Run("post", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/v1/transitions/scan", strings.NewReader(`{"dry_run":true}`))
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var res orchestrator.ScanResult
		if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if res.Evaluated != 5 || res.Created != 2 {
			t.Errorf("unexpected result: %+v", res)
		}
	})

	t.Run("get is dry run", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/transitions/scan", nil)
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", w.Code)
		}
	})
}

func TestHistory(t *testing.T) {
	sample := sampleRequest(t)
	srv := newTestServer(&stubService{requests: []transition.Request{*sample}})

	req := httptest.NewRequest("GET", "/api/v1/speakers/"+sample.SpeakerID.String()+"/transitions", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestSubmitReport(t *testing.T) {
	speakerID := uuid.New()
	prof := speaker.NewProfile(speakerID, time.Now())
	srv := newTestServer(&stubService{profile: prof})

	payload := `{"speaker_id":"` + speakerID.String() + `","original_text":"the quick brown fox","corrected_text":"the quick brown fix"}`
	req := httptest.NewRequest("POST", "/api/v1/reports", strings.NewReader(payload))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	var got speaker.Profile
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.SpeakerID != speakerID {
		t.Errorf("expected speaker %s, got %s", speakerID, got.SpeakerID)
	}
}

func TestSubmitReport_MissingOriginal(t *testing.T) {
	srv := newTestServer(&stubService{})

	payload := `{"speaker_id":"` + uuid.New().String() + `","original_text":""}`
	req := httptest.NewRequest("POST", "/api/v1/reports", strings.NewReader(payload))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	srv := newTestServer(&stubService{})

	req := httptest.NewRequest("GET", "/nonexistent", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
