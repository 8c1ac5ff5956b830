package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/speechops/grader/internal/quality"
	"github.com/speechops/grader/internal/speaker"
)

// ReportMessage is the wire shape of a submitted correction report.
type ReportMessage struct {
	ReportID        string   `json:"report_id,omitempty"`
	SpeakerID       string   `json:"speaker_id"`
	OriginalText    string   `json:"original_text"`
	CorrectedText   string   `json:"corrected_text"`
	ErrorCategories []string `json:"error_categories,omitempty"`
	SeverityLevel   string   `json:"severity_level,omitempty"`
	ContextNotes    string   `json:"context_notes,omitempty"`
	ReportedAt      string   `json:"reported_at,omitempty"` // RFC 3339
}

// Report converts the message to a domain report. The report ID and
// timestamp are optional on the wire and filled in downstream when absent.
func (m ReportMessage) Report() (quality.CorrectionReport, error) {
	speakerID, err := uuid.Parse(m.SpeakerID)
	if err != nil {
		return quality.CorrectionReport{}, err
	}
	r := quality.CorrectionReport{
		SpeakerID:       speakerID,
		OriginalText:    m.OriginalText,
		CorrectedText:   m.CorrectedText,
		ErrorCategories: m.ErrorCategories,
		SeverityLevel:   m.SeverityLevel,
		ContextNotes:    m.ContextNotes,
	}
	if m.ReportID != "" {
		if r.ID, err = uuid.Parse(m.ReportID); err != nil {
			return quality.CorrectionReport{}, err
		}
	}
	if m.ReportedAt != "" {
		if r.CreatedAt, err = time.Parse(time.RFC3339, m.ReportedAt); err != nil {
			return quality.CorrectionReport{}, err
		}
	}
	return r, nil
}

// Ingester absorbs a correction report into the speaker's profile.
type Ingester interface {
	IngestReport(ctx context.Context, report quality.CorrectionReport) (*speaker.Profile, error)
}

// ConsumeReports subscribes to the report intake subject and feeds each
// report to the ingester. Malformed or failing messages are logged and
// dropped; the bus redelivers nothing.
func (c *Client) ConsumeReports(ctx context.Context, ingester Ingester, logger *slog.Logger) error {
	return c.Subscribe(SubjectReportSubmitted, func(subject string, data []byte) {
		var msg ReportMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Error("malformed report message", "subject", subject, "error", err)
			return
		}
		report, err := msg.Report()
		if err != nil {
			logger.Error("invalid report message", "subject", subject, "speaker_id", msg.SpeakerID, "error", err)
			return
		}
		prof, err := ingester.IngestReport(ctx, report)
		if err != nil {
			logger.Error("report ingestion failed", "speaker_id", msg.SpeakerID, "error", err)
			return
		}
		logger.Info("report ingested",
			"speaker_id", prof.SpeakerID,
			"bucket", prof.CurrentBucket.String(),
			"total_reports", prof.TotalReports,
		)
	})
}
