// Package config loads and validates the core's runtime configuration —
// the options enumerated in spec.md §6 (worker parallelism, HTTP transport
// tuning, the embedding service endpoint, drift thresholds) plus the
// ambient logging/tracing/database settings every component needs.
package config

import "time"

// Config is the root configuration for the PromptShield core.
type Config struct {
	Core     CoreConfig     `mapstructure:"core" yaml:"core" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database" validate:"required"`
	HTTP     HTTPConfig     `mapstructure:"http" yaml:"http"`
	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding"`
	Judge    JudgeConfig    `mapstructure:"judge" yaml:"judge"`
	Drift    DriftConfig    `mapstructure:"drift" yaml:"drift"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Tracing  TracingConfig  `mapstructure:"tracing" yaml:"tracing"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

// CoreConfig holds engine-wide settings.
type CoreConfig struct {
	// WorkerParallelism bounds the number of concurrent (adapter, category)
	// jobs an execution runs at once (spec.md §4.4, §5). Default 8.
	WorkerParallelism int `mapstructure:"worker_parallelism" yaml:"worker_parallelism" validate:"min=1,max=256"`

	// EnableAgentTraces toggles the drift engine's agent/tool channel, and
	// with it agent-trace extraction from Findings (spec.md §4.5, §6).
	EnableAgentTraces bool `mapstructure:"enable_agent_traces" yaml:"enable_agent_traces"`

	// ExecutionTimeoutPerJob bounds each (adapter, category) job; the
	// overall execution timeout is this multiplied by the work-set size
	// (spec.md §5).
	ExecutionTimeoutPerJob time.Duration `mapstructure:"execution_timeout_per_job" yaml:"execution_timeout_per_job"`
}

// DatabaseConfig holds SQLite connection settings.
type DatabaseConfig struct {
	Path            string        `mapstructure:"path" yaml:"path" validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns" validate:"min=1,max=100"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns" validate:"min=1,max=100"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout" yaml:"busy_timeout"`
}

// HTTPConfig holds the LLM Transport's timeout/retry tuning (spec.md §4.2,
// §6). TimeoutSeconds sets the shared http.Client's timeout, which caps
// every request whatever the LLMConfig says. MaxRetries is not read by the
// transport: retries come from LLMConfig.MaxRetries (model.DefaultMaxRetries
// when that is unset).
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds" validate:"min=1"`
	MaxRetries     int `mapstructure:"max_retries" yaml:"max_retries" validate:"min=0,max=10"`
}

// EmbeddingConfig points at the external embedding service (spec.md §6).
type EmbeddingConfig struct {
	ServiceURL string `mapstructure:"service_url" yaml:"service_url"`
	ModelName  string `mapstructure:"model_name" yaml:"model_name"`
	BatchSize  int    `mapstructure:"batch_size" yaml:"batch_size" validate:"min=1"`
}

// JudgeConfig controls the promptfoo adapter's optional LLM-judge pass
// (SPEC_FULL.md §10): when Enabled, the adapter delegates its "is this a
// good answer" heuristic to a real chat model via langchaingo's llms.Model
// abstraction instead of running heuristics alone.
type JudgeConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Provider string `mapstructure:"provider" yaml:"provider" validate:"omitempty,oneof=openai anthropic"`
	Model    string `mapstructure:"model" yaml:"model"`
	APIKey   string `mapstructure:"api_key" yaml:"api_key"`
}

// DriftConfig holds per-channel thresholds and the comparison timeout
// (spec.md §4.8, §6).
type DriftConfig struct {
	Thresholds        map[string]float64 `mapstructure:"thresholds" yaml:"thresholds"`
	ComparisonTimeout time.Duration      `mapstructure:"comparison_timeout" yaml:"comparison_timeout"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=json text"`
}

// TracingConfig configures the OpenTelemetry tracer provider.
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}

// MetricsConfig configures the Prometheus metrics exporter.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" yaml:"port" validate:"omitempty,min=1,max=65535"`
}
