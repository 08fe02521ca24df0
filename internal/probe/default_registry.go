package probe

import (
	"log/slog"

	"github.com/tmc/langchaingo/llms"

	"github.com/roshinpv1/promptshield/internal/probe/adapters"
	"github.com/roshinpv1/promptshield/internal/transport"
)

// NewDefaultRegistry builds the Registry shipped with the core: garak,
// pyrit, langtest, and promptfoo, all sharing the one transport.Client.
// judge is optional (nil disables the LLM-judge path in promptfoo).
func NewDefaultRegistry(client *transport.Client, judge llms.Model, logger *slog.Logger) *Registry {
	r := NewRegistry()
	r.Register(adapters.NewGarak(client, logger))
	r.Register(adapters.NewPyRIT(client, logger))
	r.Register(adapters.NewLangTest(client, logger))
	r.Register(adapters.NewPromptfoo(client, judge, logger))
	return r
}
