package model

import "github.com/roshinpv1/promptshield/internal/coretypes"

// RawFinding is what a probe adapter returns for one (category, prompt)
// pair, before normalization.
type RawFinding struct {
	Library          string
	Category         string
	Severity         Severity
	RiskType         string
	EvidencePrompt   string
	EvidenceResponse string
	Confidence       *float64
	Metadata         map[string]any
}

// Finding is the canonical, normalized record of one probe outcome.
type Finding struct {
	ID               coretypes.ID   `json:"id"`
	ExecutionID      coretypes.ID   `json:"execution_id"`
	Library          string         `json:"library"`
	TestCategory     string         `json:"test_category"`
	Severity         Severity       `json:"severity"`
	RiskType         string         `json:"risk_type"`
	EvidencePrompt   string         `json:"evidence_prompt"`
	EvidenceResponse string         `json:"evidence_response"`
	Confidence       *float64       `json:"confidence,omitempty"`
	Extra            map[string]any `json:"extra,omitempty"`
}

// AdapterErrorRiskType is the risk_type assigned to Findings synthesized
// from an adapter-level failure (spec.md §4.1, §4.9).
const AdapterErrorRiskType = "adapter_error"

// ClampConfidence clamps v into [0,1].
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
