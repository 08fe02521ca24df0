package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/roshinpv1/promptshield/internal/baseline"
	"github.com/roshinpv1/promptshield/internal/config"
	"github.com/roshinpv1/promptshield/internal/database"
	"github.com/roshinpv1/promptshield/internal/drift"
	"github.com/roshinpv1/promptshield/internal/embedding"
	"github.com/roshinpv1/promptshield/internal/execution"
	"github.com/roshinpv1/promptshield/internal/observability"
	"github.com/roshinpv1/promptshield/internal/probe"
	"github.com/roshinpv1/promptshield/internal/store"
	"github.com/roshinpv1/promptshield/internal/transport"
)

// app bundles everything a subcommand needs to act on the core, built fresh
// for each CLI invocation (spec.md has no long-running CLI process; the
// daemon/server surface is out of scope).
type app struct {
	cfg            *config.Config
	db             *database.DB
	store          *store.Store
	logger         *slog.Logger
	recorder       *observability.Recorder
	tracerProvider *sdktrace.TracerProvider
}

// openApp loads configuration, opens the database, and applies migrations.
// Callers must call app.Close() when done.
func openApp(ctx context.Context) (*app, error) {
	loader := config.NewConfigLoader(config.NewValidator())
	cfg, err := loader.LoadWithDefaults(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg.Logging)

	db, err := database.OpenWithConfig(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		BusyTimeout:     cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := store.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	meterProvider, _, err := observability.InitMetrics(observability.MetricsConfig{Enabled: cfg.Metrics.Enabled})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	recorder := observability.NewRecorder(meterProvider.Meter("promptshield"))

	tracerProvider, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled: cfg.Tracing.Enabled,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	return &app{
		cfg:            cfg,
		db:             db,
		store:          store.New(db),
		logger:         logger,
		recorder:       recorder,
		tracerProvider: tracerProvider,
	}, nil
}

func (a *app) Close() error {
	if err := observability.ShutdownTracing(context.Background(), a.tracerProvider); err != nil {
		a.logger.Warn("tracer shutdown failed", "error", err)
	}
	return a.db.Close()
}

// executionEngine builds the execution.Engine wired to this app's registry,
// store, and recorder (SPEC_FULL.md §9.7, §10).
func (a *app) executionEngine() (*execution.Engine, error) {
	httpClient := &http.Client{Timeout: time.Duration(a.cfg.HTTP.TimeoutSeconds) * time.Second}
	client := transport.NewClient(transport.WithHTTPClient(httpClient), transport.WithLogger(a.logger))

	judge, err := probe.NewJudge(a.cfg.Judge)
	if err != nil {
		return nil, fmt.Errorf("build judge: %w", err)
	}
	registry := probe.NewDefaultRegistry(client, judge, a.logger)

	embedClient := embedding.New(a.cfg.Embedding.ServiceURL, a.cfg.Embedding.ModelName, a.store,
		embedding.WithBatchSize(a.cfg.Embedding.BatchSize),
		embedding.WithRecorder(a.recorder),
	)

	return execution.New(a.store, registry,
		execution.WithWorkerParallelism(a.cfg.Core.WorkerParallelism),
		execution.WithJobTimeout(a.cfg.Core.ExecutionTimeoutPerJob),
		execution.WithLogger(a.logger),
		execution.WithRecorder(a.recorder),
		execution.WithPostHook(embedClient.GenerateForExecution),
	), nil
}

// driftEngine builds the drift.Engine wired to this app's store and
// recorder.
func (a *app) driftEngine() *drift.Engine {
	selector := baseline.New(a.store)
	return drift.New(a.store, selector, a.logger).
		WithRecorder(a.recorder).
		WithAgentTraces(a.cfg.Core.EnableAgentTraces)
}

// driftThresholds converts the configured per-channel thresholds into a
// drift.Thresholds struct.
func (a *app) driftThresholds() drift.Thresholds {
	return drift.Thresholds{
		Output:       a.cfg.ThresholdFor("output"),
		Safety:       a.cfg.ThresholdFor("safety"),
		Distribution: a.cfg.ThresholdFor("distribution"),
		Embedding:    a.cfg.ThresholdFor("embedding"),
		AgentTool:    a.cfg.ThresholdFor("agent_tool"),
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
