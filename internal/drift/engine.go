package drift

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/roshinpv1/promptshield/internal/agenttrace"
	"github.com/roshinpv1/promptshield/internal/baseline"
	"github.com/roshinpv1/promptshield/internal/coretypes"
	"github.com/roshinpv1/promptshield/internal/model"
	"github.com/roshinpv1/promptshield/internal/observability"
	"github.com/roshinpv1/promptshield/internal/store"
)

// Thresholds carries the per-channel thresholds a comparison runs with
// (config.Config.ThresholdFor, spec.md §6).
type Thresholds struct {
	Output       float64
	Safety       float64
	Distribution float64
	Embedding    float64
	AgentTool    float64
}

// Engine runs drift comparisons (spec.md §4.8): it resolves a baseline,
// runs all five channels independently, and persists the unified result.
// A channel's own failure never aborts the comparison — it is caught and
// recorded as a channel_error DriftFinding (spec.md §7) — only baseline
// resolution failures are returned to the caller as typed errors.
type Engine struct {
	store             *store.Store
	selector          *baseline.Selector
	logger            *slog.Logger
	recorder          *observability.Recorder
	tracer            trace.Tracer
	enableAgentTraces bool
}

// New builds an Engine.
func New(st *store.Store, selector *baseline.Selector, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: st, selector: selector, logger: logger, tracer: otel.Tracer("promptshield/drift")}
}

// WithRecorder attaches an observability.Recorder so per-channel durations
// are emitted (SPEC_FULL.md §10). Returns the same Engine for chaining.
func (e *Engine) WithRecorder(r *observability.Recorder) *Engine {
	e.recorder = r
	return e
}

// WithAgentTraces toggles the agent/tool channel per config.CoreConfig's
// EnableAgentTraces (spec.md §4.5, §6): when disabled, the channel is
// skipped entirely rather than extracting traces from Findings and finding
// none to compare, since agent-trace reconstruction is itself the thing the
// flag gates. Returns the same Engine for chaining.
func (e *Engine) WithAgentTraces(enabled bool) *Engine {
	e.enableAgentTraces = enabled
	return e
}

// Compare implements compareDrift(currentId, BaselineRef) -> driftFindings
// (spec.md §6): resolves baselineRef, runs the channels (agent/tool only
// when enabled), replaces any prior DriftFindings for this (current,
// baseline) pair, and returns the fresh set. When neither execution has
// any Findings, no channel runs and the persisted set is empty. Idempotent: re-running with the same inputs yields the same
// findings (byte-equal except ids), per Testable Property #6.
func (e *Engine) Compare(ctx context.Context, currentExecutionID coretypes.ID, ref model.BaselineRef, thresholds Thresholds) ([]model.DriftFinding, error) {
	ctx, span := e.tracer.Start(ctx, "drift.Compare", trace.WithAttributes(
		attribute.String("current_execution_id", string(currentExecutionID)),
	))
	defer span.End()

	baselineExecutionID, err := e.selector.Resolve(ctx, currentExecutionID, ref, false)
	if err != nil {
		return nil, err
	}

	currentFindings, err := e.store.ListFindings(ctx, currentExecutionID)
	if err != nil {
		return nil, err
	}
	baselineFindings, err := e.store.ListFindings(ctx, baselineExecutionID)
	if err != nil {
		return nil, err
	}

	if len(currentFindings) == 0 && len(baselineFindings) == 0 {
		if err := e.store.ReplaceDriftFindings(ctx, currentExecutionID, baselineExecutionID, nil); err != nil {
			return nil, err
		}
		return []model.DriftFinding{}, nil
	}

	var findings []model.DriftFinding
	findings = append(findings, e.runChannel(ctx, model.ChannelOutput, currentExecutionID, baselineExecutionID, func() ([]model.DriftFinding, error) {
		return outputChannel(currentExecutionID, baselineExecutionID, currentFindings, baselineFindings, thresholds.Output), nil
	})...)
	findings = append(findings, e.runChannel(ctx, model.ChannelSafety, currentExecutionID, baselineExecutionID, func() ([]model.DriftFinding, error) {
		return safetyChannel(currentExecutionID, baselineExecutionID, currentFindings, baselineFindings, thresholds.Safety), nil
	})...)
	findings = append(findings, e.runChannel(ctx, model.ChannelDistribution, currentExecutionID, baselineExecutionID, func() ([]model.DriftFinding, error) {
		return distributionChannel(currentExecutionID, baselineExecutionID, currentFindings, baselineFindings, thresholds.Distribution), nil
	})...)
	findings = append(findings, e.runChannel(ctx, model.ChannelEmbedding, currentExecutionID, baselineExecutionID, func() ([]model.DriftFinding, error) {
		currentEmbeddings, err := e.store.ListEmbeddingsForExecution(ctx, currentExecutionID)
		if err != nil {
			return nil, err
		}
		baselineEmbeddings, err := e.store.ListEmbeddingsForExecution(ctx, baselineExecutionID)
		if err != nil {
			return nil, err
		}
		return embeddingChannel(currentExecutionID, baselineExecutionID, currentEmbeddings, baselineEmbeddings, thresholds.Embedding), nil
	})...)
	if e.enableAgentTraces {
		findings = append(findings, e.runChannel(ctx, model.ChannelAgentTool, currentExecutionID, baselineExecutionID, func() ([]model.DriftFinding, error) {
			currentTraces, err := agenttrace.ForExecution(ctx, e.store, currentExecutionID)
			if err != nil {
				return nil, err
			}
			baselineTraces, err := agenttrace.ForExecution(ctx, e.store, baselineExecutionID)
			if err != nil {
				return nil, err
			}
			return agentToolChannel(currentExecutionID, baselineExecutionID, currentTraces, baselineTraces, thresholds.AgentTool), nil
		})...)
	}

	if err := e.store.ReplaceDriftFindings(ctx, currentExecutionID, baselineExecutionID, findings); err != nil {
		return nil, err
	}
	return findings, nil
}

// runChannel converts a channel's own error (e.g. a store read failing)
// into the channel_error DriftFinding spec.md §7 specifies, so one
// channel's failure never aborts the other four.
func (e *Engine) runChannel(ctx context.Context, channel model.DriftChannel, currentID, baselineID coretypes.ID, fn func() ([]model.DriftFinding, error)) []model.DriftFinding {
	_, span := e.tracer.Start(ctx, "drift.channel."+string(channel), trace.WithAttributes(
		attribute.String("current_execution_id", string(currentID)),
		attribute.String("baseline_execution_id", string(baselineID)),
	))
	defer span.End()

	start := time.Now()
	findings, err := fn()
	if e.recorder != nil {
		e.recorder.RecordDriftChannelDuration(string(channel), float64(time.Since(start).Milliseconds()))
	}
	if err == nil {
		return findings
	}
	e.logger.Error("drift channel failed", "channel", channel, "error", err)
	return []model.DriftFinding{{
		ID:                  coretypes.NewID(),
		CurrentExecutionID:  currentID,
		BaselineExecutionID: baselineID,
		Channel:             channel,
		Metric:              model.ChannelErrorMetric,
		Value:               0,
		Threshold:           0,
		Severity:            model.DriftLow,
		Details:             map[string]any{"error": err.Error()},
	}}
}
