// Package normalize implements the Normalizer component (spec.md §4.3):
// it validates one adapter's RawFinding and produces the canonical Finding
// record the rest of the core operates on. Validation never discards data —
// an invalid RawFinding becomes an info Finding describing what was wrong.
package normalize

import (
	"fmt"

	"github.com/roshinpv1/promptshield/internal/coretypes"
	"github.com/roshinpv1/promptshield/internal/model"
)

// Normalizer validates and canonicalizes RawFindings into Findings.
type Normalizer struct {
	mitre *MitreTable
}

// New creates a Normalizer with the default MITRE lookup table.
func New() *Normalizer {
	return &Normalizer{mitre: DefaultMitreTable()}
}

// Normalize converts one RawFinding for executionID into a Finding. It
// never returns an error: any problem with raw is captured as an info
// Finding per spec.md §4.3 ("ingest never discards data silently").
func (n *Normalizer) Normalize(executionID coretypes.ID, raw model.RawFinding) model.Finding {
	severity := raw.Severity
	issues := make([]string, 0, 2)

	if !severity.IsValid() {
		if severity != "" {
			issues = append(issues, fmt.Sprintf("unknown severity %q defaulted to info", severity))
		}
		severity = model.SeverityInfo
	}

	riskType := raw.RiskType
	if riskType == "" {
		riskType = raw.Category
		if riskType == "" {
			riskType = "unspecified"
		}
	}

	var confidence *float64
	if raw.Confidence != nil {
		v := model.ClampConfidence(*raw.Confidence)
		confidence = &v
	}

	extra := map[string]any{}
	for k, v := range raw.Metadata {
		extra[k] = v
	}
	if len(issues) > 0 {
		extra["normalization_issues"] = issues
	}

	f := model.Finding{
		ID:               coretypes.NewID(),
		ExecutionID:      executionID,
		Library:          raw.Library,
		TestCategory:     raw.Category,
		Severity:         severity,
		RiskType:         riskType,
		EvidencePrompt:   raw.EvidencePrompt,
		EvidenceResponse: raw.EvidenceResponse,
		Confidence:       confidence,
		Extra:            extra,
	}

	if mappings := n.mitre.Lookup(riskType, raw.Category); mappings != nil {
		f.Extra["mitre"] = mappings
	}
	f.Extra["fingerprint"] = Fingerprint(f)

	return f
}

// NormalizeValidationError builds the info Finding spec.md §4.3 requires
// when a RawFinding cannot be interpreted at all (e.g. empty library name),
// as opposed to the lesser issues Normalize downgrades in place.
func NormalizeValidationError(executionID coretypes.ID, raw model.RawFinding, reason string) model.Finding {
	return model.Finding{
		ID:               coretypes.NewID(),
		ExecutionID:      executionID,
		Library:          raw.Library,
		TestCategory:     raw.Category,
		Severity:         model.SeverityInfo,
		RiskType:         "validation_error",
		EvidencePrompt:   raw.EvidencePrompt,
		EvidenceResponse: raw.EvidenceResponse,
		Extra: map[string]any{
			"validation_error": reason,
		},
	}
}
