package model

import "github.com/roshinpv1/promptshield/internal/coretypes"

// Pipeline selects which probe adapters and test categories an execution
// should run, plus optional severity cutoffs used by summarization.
type Pipeline struct {
	ID               coretypes.ID     `json:"id"`
	Name             string           `json:"name"`
	Libraries        []string         `json:"libraries"`
	TestCategories   []string         `json:"test_categories"`
	SeverityCutoffs  map[Severity]int `json:"severity_cutoffs,omitempty"`
	LLMConfigID      coretypes.ID     `json:"llm_config_id"`
}

// WorkItem is one (adapter, category) pair to be scheduled by the execution
// engine.
type WorkItem struct {
	Adapter  string
	Category string
}
