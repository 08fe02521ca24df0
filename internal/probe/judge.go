package probe

import (
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/roshinpv1/promptshield/internal/config"
)

// NewJudge builds the optional llms.Model the promptfoo adapter delegates
// its quality classification to (SPEC_FULL.md §10), or nil when judging is
// disabled, mirroring the teacher's per-provider factories
// (internal/llm/providers/openai.go, anthropic.go) narrowed to construction
// only — promptfoo calls llms.GenerateFromSinglePrompt itself.
func NewJudge(cfg config.JudgeConfig) (llms.Model, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Provider {
	case "anthropic":
		opts := []anthropic.Option{anthropic.WithToken(cfg.APIKey)}
		if cfg.Model != "" {
			opts = append(opts, anthropic.WithModel(cfg.Model))
		}
		return anthropic.New(opts...)
	case "openai", "":
		opts := []openai.Option{openai.WithToken(cfg.APIKey)}
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		return openai.New(opts...)
	default:
		return nil, fmt.Errorf("judge: unsupported provider %q", cfg.Provider)
	}
}
