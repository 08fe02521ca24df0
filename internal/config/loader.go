package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// ConfigLoader loads Config from a YAML file, interpolating ${VAR}
// environment references and validating the result.
type ConfigLoader interface {
	Load(path string) (*Config, error)
	LoadWithDefaults(path string) (*Config, error)
}

type viperConfigLoader struct {
	validator ConfigValidator
}

// NewConfigLoader creates a ConfigLoader backed by the given validator.
func NewConfigLoader(validator ConfigValidator) ConfigLoader {
	return &viperConfigLoader{validator: validator}
}

// Load reads and validates the configuration file at path.
func (l *viperConfigLoader) Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	interpolateStrings(cfg)

	if err := l.validator.Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults behaves like Load but returns DefaultConfig() untouched
// when path does not exist.
func (l *viperConfigLoader) LoadWithDefaults(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := l.validator.Validate(cfg); err != nil {
			return nil, fmt.Errorf("default configuration validation failed: %w", err)
		}
		return cfg, nil
	}
	return l.Load(path)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// interpolateString replaces ${VAR_NAME} with the environment variable's
// value, leaving the placeholder untouched if the variable is unset.
func interpolateString(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if v := os.Getenv(name); v != "" {
			return v
		}
		return match
	})
}

// interpolateStrings walks the handful of string fields that plausibly
// carry ${VAR} references (service URLs, endpoints, paths) and interpolates
// them in place.
func interpolateStrings(cfg *Config) {
	cfg.Database.Path = interpolateString(cfg.Database.Path)
	cfg.Embedding.ServiceURL = interpolateString(cfg.Embedding.ServiceURL)
	cfg.Embedding.ModelName = interpolateString(cfg.Embedding.ModelName)
	cfg.Tracing.Endpoint = interpolateString(cfg.Tracing.Endpoint)
	cfg.Judge.APIKey = interpolateString(cfg.Judge.APIKey)
}
