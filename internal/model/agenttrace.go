package model

import "github.com/roshinpv1/promptshield/internal/coretypes"

// ToolInvocation is one tool call recorded within an agent trace.
type ToolInvocation struct {
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args,omitempty"`
	Result any            `json:"result,omitempty"`
}

// AgentTrace is the ordered tool-call sequence extracted from a Finding's
// extra metadata (spec.md §3, §4.9). It is derived, not authoritative.
type AgentTrace struct {
	FindingID   coretypes.ID     `json:"finding_id"`
	Invocations []ToolInvocation `json:"invocations"`
}

// ExtractAgentTrace reads the recognized {agent_trace: [...]} shape from a
// Finding's extra metadata. It returns (nil, false) when absent or
// malformed.
func ExtractAgentTrace(findingID coretypes.ID, extra map[string]any) (*AgentTrace, bool) {
	if extra == nil {
		return nil, false
	}
	raw, ok := extra["agent_trace"]
	if !ok {
		return nil, false
	}
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return nil, false
	}

	invocations := make([]ToolInvocation, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		tool, _ := m["tool"].(string)
		if tool == "" {
			continue
		}
		inv := ToolInvocation{Tool: tool}
		if args, ok := m["args"].(map[string]any); ok {
			inv.Args = args
		}
		if result, ok := m["result"]; ok {
			inv.Result = result
		}
		invocations = append(invocations, inv)
	}
	if len(invocations) == 0 {
		return nil, false
	}
	return &AgentTrace{FindingID: findingID, Invocations: invocations}, true
}
