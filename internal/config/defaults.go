package config

import "time"

// Default channel thresholds, matching spec.md §4.8.
var DefaultDriftThresholds = map[string]float64{
	"output":       0.20,
	"safety":       0.15,
	"distribution": 0.20,
	"embedding":    0.30,
	"agent_tool":   0.25,
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Core: CoreConfig{
			WorkerParallelism:      8,
			EnableAgentTraces:      false,
			ExecutionTimeoutPerJob: 300 * time.Second,
		},
		Database: DatabaseConfig{
			Path:            "promptshield.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			BusyTimeout:     5 * time.Second,
		},
		HTTP: HTTPConfig{
			TimeoutSeconds: 30,
			MaxRetries:     3,
		},
		Embedding: EmbeddingConfig{
			ModelName: "all-MiniLM-L6-v2",
			BatchSize: 32,
		},
		Judge: JudgeConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		Drift: DriftConfig{
			Thresholds:        DefaultDriftThresholds,
			ComparisonTimeout: 600 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Port: 9090,
		},
	}
}

// ThresholdFor returns the configured threshold for channel, falling back
// to the spec default when unset.
func (c *Config) ThresholdFor(channel string) float64 {
	if c.Drift.Thresholds != nil {
		if v, ok := c.Drift.Thresholds[channel]; ok {
			return v
		}
	}
	return DefaultDriftThresholds[channel]
}
