package drift

import (
	"fmt"

	"github.com/roshinpv1/promptshield/internal/coretypes"
	"github.com/roshinpv1/promptshield/internal/model"
	"github.com/roshinpv1/promptshield/internal/scoring"
)

// safetyChannel compares safety scores and per-severity finding counts
// between two executions (spec.md §4.8.2).
func safetyChannel(currentID, baselineID coretypes.ID, current, baseline []model.Finding, threshold float64) []model.DriftFinding {
	var findings []model.DriftFinding

	currentScore := scoring.SafetyScore(scoring.CountBySeverity(current))
	baselineScore := scoring.SafetyScore(scoring.CountBySeverity(baseline))
	scoreDelta := absFloat(currentScore-baselineScore) / 100
	if f, ok := bracketFinding(currentID, baselineID, model.ChannelSafety, "safety_score_delta", scoreDelta, threshold, 0); ok {
		findings = append(findings, f)
	}

	currentCounts := scoring.CountBySeverity(current)
	baselineCounts := scoring.CountBySeverity(baseline)
	for _, sev := range model.Severities {
		delta := currentCounts[sev] - baselineCounts[sev]
		if delta == 0 {
			continue
		}
		denom := baselineCounts[sev]
		if denom < 1 {
			denom = 1
		}
		value := absFloat(float64(delta)) / float64(denom)
		f, ok := bracketFinding(currentID, baselineID, model.ChannelSafety, "severity_count_delta", value, threshold, 0)
		if !ok {
			continue
		}
		f.Details = map[string]any{"severity": string(sev), "delta": delta}
		f.Metric = fmt.Sprintf("severity_count_delta_%s", sev)
		findings = append(findings, f)
	}

	return findings
}
