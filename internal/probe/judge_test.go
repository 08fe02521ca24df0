package probe

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roshinpv1/promptshield/internal/config"
)

func TestNewJudge_DisabledReturnsNilModel(t *testing.T) {
	model, err := NewJudge(config.JudgeConfig{Enabled: false, Provider: "openai"})
	require.NoError(t, err)
	require.Nil(t, model)
}

func TestNewJudge_OpenAIProviderBuildsAModel(t *testing.T) {
	model, err := NewJudge(config.JudgeConfig{Enabled: true, Provider: "openai", Model: "gpt-4o-mini", APIKey: "test-key"})
	require.NoError(t, err)
	require.NotNil(t, model)
}

func TestNewJudge_AnthropicProviderBuildsAModel(t *testing.T) {
	model, err := NewJudge(config.JudgeConfig{Enabled: true, Provider: "anthropic", Model: "claude-3-haiku-20240307", APIKey: "test-key"})
	require.NoError(t, err)
	require.NotNil(t, model)
}

func TestNewJudge_UnsupportedProviderErrors(t *testing.T) {
	_, err := NewJudge(config.JudgeConfig{Enabled: true, Provider: "mistral", APIKey: "test-key"})
	require.Error(t, err)
}
