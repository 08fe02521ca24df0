// Package summary implements the summarize(executionId) control-API
// operation (spec.md §6): it aggregates an execution's Findings into the
// counts and sub-scores a consumer needs, and folds in the most recent
// drift comparison for that execution when one has been persisted.
package summary

import (
	"context"

	"github.com/roshinpv1/promptshield/internal/coretypes"
	"github.com/roshinpv1/promptshield/internal/model"
	"github.com/roshinpv1/promptshield/internal/scoring"
	"github.com/roshinpv1/promptshield/internal/store"
)

// Summary is the response shape for summarize(executionId) (spec.md §6).
type Summary struct {
	Total               int                            `json:"total"`
	BySeverity          map[model.Severity]int         `json:"by_severity"`
	ByLibrary           map[string]int                 `json:"by_library"`
	ByCategory          map[string]int                 `json:"by_category"`
	SafetyScore         float64                        `json:"safety_score"`
	SafetyGrade         scoring.Grade                  `json:"safety_grade"`
	SubScoresByLibrary  map[string]scoring.ScoreResult `json:"sub_scores_by_library"`
	SubScoresByCategory map[string]scoring.ScoreResult `json:"sub_scores_by_category"`
	DriftScore          *float64                       `json:"drift_score,omitempty"`
	DriftGrade          *scoring.Grade                 `json:"drift_grade,omitempty"`
}

// Summarize builds a Summary for executionID. When baselineExecutionID is
// non-nil and a drift comparison for (executionID, *baselineExecutionID)
// has been persisted, DriftScore/DriftGrade are populated; otherwise they
// are left nil (no comparison has been requested for this pair yet).
func Summarize(ctx context.Context, st *store.Store, executionID coretypes.ID, baselineExecutionID *coretypes.ID) (Summary, error) {
	findings, err := st.ListFindings(ctx, executionID)
	if err != nil {
		return Summary{}, err
	}

	counts := scoring.CountBySeverity(findings)
	bySeverity := make(map[model.Severity]int, len(model.Severities))
	for _, sev := range model.Severities {
		bySeverity[sev] = counts[sev]
	}

	safetyScore := scoring.SafetyScore(counts)
	s := Summary{
		Total:               len(findings),
		BySeverity:          bySeverity,
		ByLibrary:           countBy(findings, func(f model.Finding) string { return f.Library }),
		ByCategory:          countBy(findings, func(f model.Finding) string { return f.TestCategory }),
		SafetyScore:         safetyScore,
		SafetyGrade:         scoring.SafetyGrade(safetyScore),
		SubScoresByLibrary:  scoring.SubScores(findings, func(f model.Finding) string { return f.Library }),
		SubScoresByCategory: scoring.SubScores(findings, func(f model.Finding) string { return f.TestCategory }),
	}

	if baselineExecutionID == nil {
		return s, nil
	}

	driftFindings, err := st.ListDriftFindings(ctx, executionID, *baselineExecutionID)
	if err != nil {
		return Summary{}, err
	}
	if len(driftFindings) == 0 {
		return s, nil
	}
	driftScore := scoring.DriftScore(driftFindings)
	driftGrade := scoring.DriftGrade(driftScore)
	s.DriftScore = &driftScore
	s.DriftGrade = &driftGrade
	return s, nil
}

func countBy(findings []model.Finding, keyOf func(model.Finding) string) map[string]int {
	out := make(map[string]int)
	for _, f := range findings {
		out[keyOf(f)]++
	}
	return out
}
