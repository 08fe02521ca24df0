package observability

import (
	"context"
	"sync"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metric name constants for the core's worker pool and drift engine
// (SPEC_FULL.md §10's wiring table).
const (
	MetricWorkerQueueDepth = "promptshield.worker.queue_depth"
	MetricJobLatency       = "promptshield.job.latency"
	MetricJobResult        = "promptshield.job.result"
	MetricDriftChannelDur  = "promptshield.drift.channel_duration"
	MetricEmbeddingBatch   = "promptshield.embedding.batch_size"
)

// MetricsConfig controls meter-provider construction.
type MetricsConfig struct {
	Enabled bool
}

// InitMetrics returns a Prometheus-backed MeterProvider when enabled, or a
// no-op provider otherwise — grounded on the teacher's InitMetrics
// (internal/observability/metrics.go), trimmed to the one exporter this
// module's dependency set carries (prometheus; the teacher's OTLP branch
// needs otlpmetricgrpc, which nothing else in this repo imports). The
// returned Registry is always fresh, never the global DefaultRegisterer,
// so multiple MeterProviders never collide. cmd/promptshield discards it;
// no metrics endpoint serves it.
func InitMetrics(cfg MetricsConfig) (metric.MeterProvider, *promclient.Registry, error) {
	if !cfg.Enabled {
		return noop.NewMeterProvider(), nil, nil
	}

	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, nil, err
	}
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)), registry, nil
}

// Recorder records the core's operational metrics via an OpenTelemetry
// meter, instruments created lazily and cached — grounded on the teacher's
// OpenTelemetryMetricsRecorder, narrowed to the counters/histograms this
// core's worker pool and drift engine actually emit.
type Recorder struct {
	meter      metric.Meter
	mu         sync.RWMutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
}

// NewRecorder builds a Recorder over the given meter.
func NewRecorder(meter metric.Meter) *Recorder {
	return &Recorder{
		meter:      meter,
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

// RecordJobResult increments MetricJobResult labeled by adapter/category/outcome.
func (r *Recorder) RecordJobResult(adapter, category, outcome string) {
	r.counter(MetricJobResult).Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("adapter", adapter),
		attribute.String("category", category),
		attribute.String("outcome", outcome),
	))
}

// RecordJobLatency records one job's wall-clock duration in milliseconds.
func (r *Recorder) RecordJobLatency(adapter, category string, durationMs float64) {
	r.histogram(MetricJobLatency).Record(context.Background(), durationMs, metric.WithAttributes(
		attribute.String("adapter", adapter),
		attribute.String("category", category),
	))
}

// RecordQueueDepth adds depth, the number of jobs one execution schedules,
// to the MetricWorkerQueueDepth counter. The counter only grows; it is not
// a gauge of jobs currently queued or running.
func (r *Recorder) RecordQueueDepth(depth int64) {
	r.counter(MetricWorkerQueueDepth).Add(context.Background(), depth)
}

// RecordDriftChannelDuration records one drift channel's wall-clock duration.
func (r *Recorder) RecordDriftChannelDuration(channel string, durationMs float64) {
	r.histogram(MetricDriftChannelDur).Record(context.Background(), durationMs, metric.WithAttributes(
		attribute.String("channel", channel),
	))
}

// RecordEmbeddingBatchSize records the number of texts sent in one
// embedding-service call.
func (r *Recorder) RecordEmbeddingBatchSize(n int64) {
	r.counter(MetricEmbeddingBatch).Add(context.Background(), n)
}

func (r *Recorder) counter(name string) metric.Int64Counter {
	r.mu.RLock()
	c, ok := r.counters[name]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[name]; ok {
		return c
	}
	c, err := r.meter.Int64Counter(name)
	if err != nil {
		c, _ = noopMeter.Int64Counter(name)
	}
	r.counters[name] = c
	return c
}

func (r *Recorder) histogram(name string) metric.Float64Histogram {
	r.mu.RLock()
	h, ok := r.histograms[name]
	r.mu.RUnlock()
	if ok {
		return h
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.histograms[name]; ok {
		return h
	}
	h, err := r.meter.Float64Histogram(name)
	if err != nil {
		h, _ = noopMeter.Float64Histogram(name)
	}
	r.histograms[name] = h
	return h
}

// noopMeter backs instrument creation when the real meter rejects a name,
// so callers never need a nil check before recording.
var noopMeter = noop.NewMeterProvider().Meter("promptshield")
