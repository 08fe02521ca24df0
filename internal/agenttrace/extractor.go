// Package agenttrace implements the Agent-Trace Extractor (spec.md §4.9):
// it walks a set of Findings and reconstructs the AgentTraces attached to
// their extra metadata, for the agent/tool drift channel to compare. Traces
// are derived, not authoritative (model.AgentTrace's own doc comment), so
// this package re-derives them from Findings on every read rather than
// maintaining a separate persisted copy that could drift out of sync.
package agenttrace

import (
	"context"

	"github.com/roshinpv1/promptshield/internal/coretypes"
	"github.com/roshinpv1/promptshield/internal/model"
	"github.com/roshinpv1/promptshield/internal/store"
)

// ExtractAll reconstructs every AgentTrace present across findings,
// skipping Findings whose extra metadata carries no recognized trace
// shape. Order follows findings' own order.
func ExtractAll(findings []model.Finding) []model.AgentTrace {
	var traces []model.AgentTrace
	for _, f := range findings {
		if trace, ok := model.ExtractAgentTrace(f.ID, f.Extra); ok {
			traces = append(traces, *trace)
		}
	}
	return traces
}

// ForExecution loads every Finding for executionID and reconstructs its
// AgentTraces, used by the drift engine's agent/tool channel for both the
// current and baseline side of a comparison.
func ForExecution(ctx context.Context, st *store.Store, executionID coretypes.ID) ([]model.AgentTrace, error) {
	findings, err := st.ListFindings(ctx, executionID)
	if err != nil {
		return nil, err
	}
	return ExtractAll(findings), nil
}
