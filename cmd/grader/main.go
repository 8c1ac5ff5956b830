package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/speechops/grader/internal/api"
	"github.com/speechops/grader/internal/config"
	"github.com/speechops/grader/internal/events"
	"github.com/speechops/grader/internal/orchestrator"
	"github.com/speechops/grader/internal/progression"
	"github.com/speechops/grader/internal/schedule"
	"github.com/speechops/grader/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("grader starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Progression criteria
	criteria, err := progression.LoadCriteria(cfg.CriteriaFile)
	if err != nil {
		slog.Error("failed to load progression criteria", "error", err)
		os.Exit(1)
	}

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database connected")

	// NATS (optional — the workflow runs without an event bus)
	var bus *events.Client
	if cfg.NatsURL != "" {
		bus, err = events.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer bus.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured — transition events will not be published")
	}

	// Orchestrator — the workflow core
	var publisher orchestrator.Publisher
	if bus != nil {
		publisher = bus
	}
	orch := orchestrator.New(db, db, db, publisher, criteria, cfg.ScanParallelism, slog.Default())

	// Consume correction reports from the review pipeline
	if bus != nil {
		if err := bus.ConsumeReports(ctx, orch, slog.Default()); err != nil {
			slog.Error("failed to subscribe to report events", "error", err)
			os.Exit(1)
		}
	}

	// Daily scan
	if err := schedule.Start(ctx, cfg.ScanSchedule, orch, slog.Default()); err != nil {
		slog.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, orch, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	// Announce startup
	if bus != nil {
		if err := bus.Publish("speech.grader.started", map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"port":      cfg.Port,
		}); err != nil {
			slog.Warn("failed to publish startup event", "error", err)
		}
	}

	slog.Info("grader ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("grader stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
