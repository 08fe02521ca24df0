// Package execution implements the Execution Engine (spec.md §4.4): it
// drives one Execution from Pending through Running to a terminal state,
// fanning the work set out across a bounded worker pool the way the
// teacher's remote prober fans health checks out across components —
// errgroup.WithContext plus a channel, collecting every result instead of
// failing fast on the first error (spec.md §4.9: one adapter's failure
// never poisons the run).
package execution

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/roshinpv1/promptshield/internal/coretypes"
	"github.com/roshinpv1/promptshield/internal/model"
	"github.com/roshinpv1/promptshield/internal/normalize"
	"github.com/roshinpv1/promptshield/internal/observability"
	"github.com/roshinpv1/promptshield/internal/probe"
	"github.com/roshinpv1/promptshield/internal/store"
)

// defaultWorkerParallelism is used when CoreConfig.WorkerParallelism is
// unset (spec.md §5).
const defaultWorkerParallelism = 8

// defaultJobTimeout bounds a single (adapter, category) job when
// CoreConfig.ExecutionTimeoutPerJob is unset (spec.md §5).
const defaultJobTimeout = 300 * time.Second

// PostHook runs best-effort after Run's terminal transition, whichever
// state the execution ends in (the CLI registers embedding generation,
// spec.md §4.4 step 5). A PostHook error is logged, never propagated — it
// does not flip a Completed execution back to Failed.
type PostHook func(ctx context.Context, executionID coretypes.ID) error

// Engine runs Executions against a probe.Registry.
type Engine struct {
	store      *store.Store
	registry   *probe.Registry
	normalizer *normalize.Normalizer
	logger     *slog.Logger
	tracer     trace.Tracer

	workerParallelism int
	jobTimeout        time.Duration
	postHooks         []PostHook
	recorder          *observability.Recorder

	mu      sync.Mutex
	cancels map[coretypes.ID]context.CancelFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkerParallelism overrides the default bounded-pool width.
func WithWorkerParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workerParallelism = n
		}
	}
}

// WithJobTimeout overrides the per-job timeout.
func WithJobTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.jobTimeout = d
		}
	}
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithPostHook registers a best-effort hook to run after every execution
// reaches a terminal state.
func WithPostHook(h PostHook) Option {
	return func(e *Engine) { e.postHooks = append(e.postHooks, h) }
}

// WithRecorder attaches an observability.Recorder; per-job outcome and
// latency metrics are emitted only when one is set (SPEC_FULL.md §10).
func WithRecorder(r *observability.Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// New builds an Engine.
func New(st *store.Store, registry *probe.Registry, opts ...Option) *Engine {
	e := &Engine{
		store:             st,
		registry:          registry,
		normalizer:        normalize.New(),
		logger:            slog.Default(),
		tracer:            otel.Tracer("promptshield/execution"),
		workerParallelism: defaultWorkerParallelism,
		jobTimeout:        defaultJobTimeout,
		cancels:           make(map[coretypes.ID]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// job is one (adapter, category) unit of scheduled work, resolved against
// the registry once up front so workers never re-look-up a missing adapter.
type job struct {
	adapter  probe.Adapter
	name     string
	category string
}

// Run executes executionID end to end: Pending->Running, work-set fan-out,
// normalization, persistence, and the terminal transition. It returns an
// error only for conditions that prevent the execution from starting at
// all (missing rows, an illegal starting state); once Running, all
// per-job failures are captured as Findings or logged, never returned.
func (e *Engine) Run(ctx context.Context, executionID coretypes.ID) error {
	ctx, span := e.tracer.Start(ctx, "execution.Run", trace.WithAttributes(
		attribute.String("execution_id", string(executionID)),
	))
	defer span.End()

	exec, err := e.store.GetExecution(ctx, executionID)
	if err != nil {
		return fmt.Errorf("execution %s: %w", executionID, err)
	}
	pipeline, err := e.store.GetPipeline(ctx, exec.PipelineID)
	if err != nil {
		return fmt.Errorf("pipeline %s: %w", exec.PipelineID, err)
	}
	target, err := e.store.GetLLMConfig(ctx, exec.LLMConfigID)
	if err != nil {
		return fmt.Errorf("llm config %s: %w", exec.LLMConfigID, err)
	}

	startedAt := time.Now().UTC()
	if err := e.store.TransitionExecution(ctx, executionID, model.StatusPending, model.StatusRunning,
		store.ExecutionStamps{StartedAt: &startedAt}); err != nil {
		return coretypes.WrapError(coretypes.EXECUTION_NOT_PENDING, "execution is not pending", err)
	}

	workSet := e.registry.WorkSet(pipeline.Libraries, pipeline.TestCategories)
	jobs := e.resolveJobs(workSet)

	overallTimeout := e.jobTimeout * time.Duration(maxInt(len(jobs), 1))
	runCtx, cancel := context.WithTimeout(ctx, overallTimeout)
	defer cancel()

	e.registerCancel(executionID, cancel)
	defer e.unregisterCancel(executionID)

	runErr := e.runJobs(runCtx, executionID, target, jobs)

	completedAt := time.Now().UTC()
	finalStatus := model.StatusCompleted
	stamps := store.ExecutionStamps{CompletedAt: &completedAt}
	if runErr != nil {
		finalStatus = model.StatusFailed
		msg := runErr.Error()
		stamps.ErrorMessage = &msg
	}
	if err := e.store.TransitionExecution(ctx, executionID, model.StatusRunning, finalStatus, stamps); err != nil {
		// The only legal way to land here is a concurrent Cancel() having
		// already moved the row to Cancelled; that transition wins.
		e.logger.Warn("execution terminal transition lost race", "execution_id", executionID, "attempted", finalStatus, "error", err)
	}

	e.runPostHooks(ctx, executionID)
	return nil
}

// resolveJobs looks up each WorkItem's adapter once, dropping items whose
// adapter went missing between WorkSet computation and now (registries are
// read-only after startup in practice, but the lookup is defensive).
func (e *Engine) resolveJobs(workSet []model.WorkItem) []job {
	jobs := make([]job, 0, len(workSet))
	for _, w := range workSet {
		a, ok := e.registry.Get(w.Adapter)
		if !ok {
			e.logger.Warn("work item references unregistered adapter, skipping", "adapter", w.Adapter, "category", w.Category)
			continue
		}
		jobs = append(jobs, job{adapter: a, name: w.Adapter, category: w.Category})
	}
	return jobs
}

// runJobs fans jobs out across a bounded pool, normalizing and persisting
// every RawFinding each job produces. It returns a non-nil error only when
// ctx is cancelled (including by Cancel()); individual adapter failures are
// captured as Findings by probe.Adapter.Execute itself and never reach
// here as errors.
func (e *Engine) runJobs(ctx context.Context, executionID coretypes.ID, target model.LLMConfig, jobs []job) error {
	if len(jobs) == 0 {
		return nil
	}

	sem := make(chan struct{}, e.workerParallelism)
	g, gCtx := errgroup.WithContext(ctx)

	if e.recorder != nil {
		e.recorder.RecordQueueDepth(int64(len(jobs)))
	}

	for _, j := range jobs {
		j := j
		select {
		case sem <- struct{}{}:
		case <-gCtx.Done():
			return gCtx.Err()
		}
		g.Go(func() error {
			defer func() { <-sem }()
			return e.runJob(gCtx, executionID, target, j)
		})
	}
	return g.Wait()
}

// runJob executes one (adapter, category) job, normalizes its RawFindings,
// and persists them. A normalization or persistence failure for one
// Finding is logged and skipped rather than failing the job, preserving
// spec.md §4.9's failure-isolation guarantee down to Finding granularity.
func (e *Engine) runJob(ctx context.Context, executionID coretypes.ID, target model.LLMConfig, j job) error {
	ctx, span := e.tracer.Start(ctx, "execution.runJob", trace.WithAttributes(
		attribute.String("adapter", j.name),
		attribute.String("category", j.category),
	))
	defer span.End()

	// Cancel() and the overall timeout stop further jobs from being
	// dispatched; a job already running drains, so its HTTP calls and
	// Finding inserts run under a context only the per-job timeout ends.
	drainCtx := context.WithoutCancel(ctx)
	jobCtx, cancel := context.WithTimeout(drainCtx, e.jobTimeout)
	defer cancel()

	start := time.Now()
	raws, err := j.adapter.Execute(jobCtx, target, []string{j.category})
	if e.recorder != nil {
		e.recorder.RecordJobLatency(j.name, j.category, float64(time.Since(start).Milliseconds()))
	}
	if err != nil {
		e.logger.Error("adapter execute failed", "adapter", j.name, "category", j.category, "error", err)
		if e.recorder != nil {
			e.recorder.RecordJobResult(j.name, j.category, "adapter_error")
		}
		finding := model.Finding{
			ID:           coretypes.NewID(),
			ExecutionID:  executionID,
			Library:      j.name,
			TestCategory: j.category,
			Severity:     model.SeverityInfo,
			RiskType:     model.AdapterErrorRiskType,
			Extra:        map[string]any{"error": err.Error()},
		}
		if perr := e.store.InsertFinding(drainCtx, finding); perr != nil {
			e.logger.Error("failed to persist adapter-error finding", "execution_id", executionID, "error", perr)
		}
		return nil
	}

	if e.recorder != nil {
		e.recorder.RecordJobResult(j.name, j.category, "success")
	}
	for _, raw := range raws {
		finding := e.normalizer.Normalize(executionID, raw)
		if err := e.store.InsertFinding(drainCtx, finding); err != nil {
			e.logger.Error("failed to persist finding", "execution_id", executionID, "library", raw.Library, "error", err)
		}
	}
	return nil
}

// runPostHooks runs every registered PostHook best-effort; a hook error is
// logged and does not affect the execution's already-committed status.
func (e *Engine) runPostHooks(ctx context.Context, executionID coretypes.ID) {
	for _, hook := range e.postHooks {
		if err := hook(ctx, executionID); err != nil {
			e.logger.Warn("post-execution hook failed", "execution_id", executionID, "error", err)
		}
	}
}

// Cancel transitions a Running execution to Cancelled and cancels its
// run context. Cancellation is cooperative and drain-based: jobs already
// dispatched to a worker are allowed to finish their in-flight HTTP calls
// and persist their Findings (runJob detaches each job from the run
// context, so only the per-job timeout ends it), but no new job is
// dispatched once the context is cancelled, per spec.md
// §4.4's Open-Question resolution.
func (e *Engine) Cancel(ctx context.Context, executionID coretypes.ID) error {
	if err := e.store.TransitionExecution(ctx, executionID, model.StatusRunning, model.StatusCancelled, store.ExecutionStamps{}); err != nil {
		return coretypes.WrapError(coretypes.EXECUTION_NOT_RUNNING, "execution is not running", err)
	}
	e.mu.Lock()
	cancel, ok := e.cancels[executionID]
	e.mu.Unlock()
	if ok {
		cancel()
	}
	return nil
}

func (e *Engine) registerCancel(executionID coretypes.ID, cancel context.CancelFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancels[executionID] = cancel
}

func (e *Engine) unregisterCancel(executionID coretypes.ID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.cancels, executionID)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
