// Package schedule runs the daily maintenance pass on a cron schedule.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/speechops/grader/internal/orchestrator"
)

// Runner is the daily maintenance entrypoint.
type Runner interface {
	RunDaily(ctx context.Context) (orchestrator.ScanResult, error)
}

// Start launches the cron loop in a goroutine and returns immediately. The
// spec is a standard 5-field cron expression (minute hour day-of-month
// month day-of-week), e.g. "0 3 * * *" for daily at 03:00. An empty spec
// disables the scheduler. The loop exits when ctx is cancelled.
func Start(ctx context.Context, spec string, runner Runner, logger *slog.Logger) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		logger.Info("scheduler disabled, no schedule configured")
		return nil
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(spec)
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	logger.Info("daily scan scheduled", "cron", spec)

	go run(ctx, sched, runner, logger)
	return nil
}

func run(ctx context.Context, sched cron.Schedule, runner Runner, logger *slog.Logger) {
	for {
		now := time.Now()
		next := sched.Next(now)
		logger.Info("next daily scan", "at", next, "in", next.Sub(now).Round(time.Minute).String())

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("scheduler stopped")
			return
		case <-timer.C:
		}

		res, err := runner.RunDaily(ctx)
		if err != nil {
			logger.Error("daily scan failed", "error", err)
			continue
		}
		logger.Info("daily scan complete",
			"evaluated", res.Evaluated,
			"created", res.Created,
			"skipped", res.Skipped,
			"errors", res.Errors,
		)
	}
}
