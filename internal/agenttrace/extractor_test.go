package agenttrace

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roshinpv1/promptshield/internal/coretypes"
	"github.com/roshinpv1/promptshield/internal/model"
)

func TestExtractAll_SkipsFindingsWithoutTraces(t *testing.T) {
	withTrace := model.Finding{
		ID: coretypes.NewID(),
		Extra: map[string]any{
			"agent_trace": []any{
				map[string]any{"tool": "search", "args": map[string]any{"q": "capital of France"}},
				map[string]any{"tool": "calculator"},
			},
		},
	}
	withoutTrace := model.Finding{ID: coretypes.NewID(), Extra: map[string]any{"mitre": "x"}}
	noExtra := model.Finding{ID: coretypes.NewID()}

	traces := ExtractAll([]model.Finding{withTrace, withoutTrace, noExtra})
	require.Len(t, traces, 1)
	require.Equal(t, withTrace.ID, traces[0].FindingID)
	require.Len(t, traces[0].Invocations, 2)
	require.Equal(t, "search", traces[0].Invocations[0].Tool)
	require.Equal(t, "calculator", traces[0].Invocations[1].Tool)
}

func TestExtractAll_EmptyInput(t *testing.T) {
	require.Empty(t, ExtractAll(nil))
}
