package model

import "github.com/roshinpv1/promptshield/internal/coretypes"

// LLMConfig describes an LLM HTTP endpoint under test. It is created by the
// (out-of-scope) CRUD API and is read-only once an execution references it.
type LLMConfig struct {
	ID              coretypes.ID      `json:"id"`
	Name            string            `json:"name"`
	EndpointURL     string            `json:"endpoint_url"`
	Method          string            `json:"method"`
	Headers         map[string]string `json:"headers"`
	PayloadTemplate string            `json:"payload_template"`
	TimeoutSeconds  int               `json:"timeout_seconds"`
	MaxRetries      int               `json:"max_retries"`
	Environment     string            `json:"environment,omitempty"`
}

// DefaultTimeoutSeconds is used when LLMConfig.TimeoutSeconds is unset.
const DefaultTimeoutSeconds = 30

// DefaultMaxRetries is used when LLMConfig.MaxRetries is unset.
const DefaultMaxRetries = 3

// EffectiveTimeoutSeconds returns the configured timeout, or the default.
func (c LLMConfig) EffectiveTimeoutSeconds() int {
	if c.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds
	}
	return c.TimeoutSeconds
}

// EffectiveMaxRetries returns the configured retry budget, or the default.
func (c LLMConfig) EffectiveMaxRetries() int {
	if c.MaxRetries <= 0 {
		return DefaultMaxRetries
	}
	return c.MaxRetries
}

// EffectiveMethod returns the configured HTTP method, defaulting to POST.
func (c LLMConfig) EffectiveMethod() string {
	if c.Method == "" {
		return "POST"
	}
	return c.Method
}
