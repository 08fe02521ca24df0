// Package observability wires OpenTelemetry tracing and Prometheus metrics
// for the core (SPEC_FULL.md §9.2/§10). internal/execution and
// internal/drift start real spans at their job and channel boundaries
// (execution.Run/execution.runJob, drift.Compare/drift.channel.*) through
// the global TracerProvider InitTracing installs, but that provider has no
// span processor attached — it builds spans with real trace/span ids for
// context propagation, then drops them, because wiring a real OTLP exporter
// would need a deployed collector endpoint nothing in this module's
// configuration surface stands up. The call sites are ready for a real
// exporter to be attached later without further changes.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const (
	defaultServiceName = "promptshield"
	defaultSampleRatio = 1.0
)

// TracingConfig controls tracer-provider construction.
type TracingConfig struct {
	Enabled    bool
	SampleRate float64
}

// InitTracing builds the process tracer provider and installs it as the
// global provider via otel.SetTracerProvider, matching the teacher's
// InitTracing contract (internal/observability/tracing.go): disabled
// config yields a bare TracerProvider with no processors attached, which
// is a true no-op — Span.End() on it never touches an exporter.
func InitTracing(ctx context.Context, cfg TracingConfig) (*sdktrace.TracerProvider, error) {
	if !cfg.Enabled {
		tp := sdktrace.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return tp, nil
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = defaultSampleRatio
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(defaultServiceName)),
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("observability: build resource: %w", err)
	}

	// No span exporter is attached here (see package doc): the provider
	// still samples and builds spans with real trace/span ids, which is
	// enough for context propagation and future wiring, but nothing
	// leaves the process yet.
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(sampleRate)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// ShutdownTracing flushes and shuts down provider, tolerating a nil
// provider so callers can defer it unconditionally.
func ShutdownTracing(ctx context.Context, provider *sdktrace.TracerProvider) error {
	if provider == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return provider.Shutdown(shutdownCtx)
}
