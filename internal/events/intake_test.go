package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestReportMessageParsing(t *testing.T) {
	raw := `{
		"report_id": "7f1e9c1a-54c2-4b3e-9a78-0d6b1f1e2a3b",
		"speaker_id": "2b4d8e0f-1a2b-4c3d-8e9f-0a1b2c3d4e5f",
		"original_text": "the quick brown fox",
		"corrected_text": "the quick brown fix",
		"error_categories": ["substitution"],
		"severity_level": "low",
		"context_notes": "clear audio",
		"reported_at": "2026-03-15T12:00:00Z"
	}`

	var msg ReportMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("failed to parse ReportMessage: %v", err)
	}

	report, err := msg.Report()
	if err != nil {
		t.Fatalf("Report() failed: %v", err)
	}
	if report.SpeakerID != uuid.MustParse("2b4d8e0f-1a2b-4c3d-8e9f-0a1b2c3d4e5f") {
		t.Errorf("wrong speaker id: %s", report.SpeakerID)
	}
	if report.OriginalText != "the quick brown fox" {
		t.Errorf("wrong original text: %q", report.OriginalText)
	}
	if len(report.ErrorCategories) != 1 || report.ErrorCategories[0] != "substitution" {
		t.Errorf("wrong categories: %v", report.ErrorCategories)
	}
	want := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	if !report.CreatedAt.Equal(want) {
		t.Errorf("wrong timestamp: %v", report.CreatedAt)
	}
}

func TestReportMessageOptionalFields(t *testing.T) {
	msg := ReportMessage{
		SpeakerID:    uuid.New().String(),
		OriginalText: "hello world",
	}
	report, err := msg.Report()
	if err != nil {
		t.Fatalf("Report() failed: %v", err)
	}
	if report.ID != uuid.Nil {
		t.Errorf("expected nil report id, got %s", report.ID)
	}
	if !report.CreatedAt.IsZero() {
		t.Errorf("expected zero timestamp, got %v", report.CreatedAt)
	}
}

func TestReportMessageBadSpeaker(t *testing.T) {
	msg := ReportMessage{SpeakerID: "not-a-uuid", OriginalText: "x"}
	if _, err := msg.Report(); err == nil {
		t.Error("expected error for malformed speaker id")
	}
}
