// Package scoring implements the deterministic safety and drift scoring
// rules from spec.md §4.6: pure functions over severity counts, so the same
// Finding multiset always yields the same score regardless of ordering
// (Testable Property #4).
package scoring

import (
	"github.com/roshinpv1/promptshield/internal/model"
)

// Grade is a letter grade A-F.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// SeverityCounts tallies Findings by severity.
type SeverityCounts map[model.Severity]int

// CountBySeverity tallies findings by severity.
func CountBySeverity(findings []model.Finding) SeverityCounts {
	counts := make(SeverityCounts, len(model.Severities))
	for _, f := range findings {
		counts[f.Severity]++
	}
	return counts
}

// SafetyScore computes the 0-100 safety score from severity counts per
// spec.md §4.6:
//
//	score = 100 - 20*critical - 10*high - 5*medium - 2*low - 0.5*info
func SafetyScore(counts SeverityCounts) float64 {
	score := 100.0
	score -= 20.0 * float64(counts[model.SeverityCritical])
	score -= 10.0 * float64(counts[model.SeverityHigh])
	score -= 5.0 * float64(counts[model.SeverityMedium])
	score -= 2.0 * float64(counts[model.SeverityLow])
	score -= 0.5 * float64(counts[model.SeverityInfo])
	return clamp(score, 0, 100)
}

// SafetyGrade maps a safety score to a letter grade: A>=90, B>=80, C>=70,
// D>=60, else F.
func SafetyGrade(score float64) Grade {
	switch {
	case score >= 90:
		return GradeA
	case score >= 80:
		return GradeB
	case score >= 70:
		return GradeC
	case score >= 60:
		return GradeD
	default:
		return GradeF
	}
}

// SubScores computes a SafetyScore+Grade per distinct value of keyOf(f),
// used for the by-library and by-category sub-score breakdowns in
// summarize() (spec.md §6).
func SubScores(findings []model.Finding, keyOf func(model.Finding) string) map[string]ScoreResult {
	buckets := make(map[string][]model.Finding)
	for _, f := range findings {
		k := keyOf(f)
		buckets[k] = append(buckets[k], f)
	}
	out := make(map[string]ScoreResult, len(buckets))
	for k, fs := range buckets {
		counts := CountBySeverity(fs)
		score := SafetyScore(counts)
		out[k] = ScoreResult{Score: score, Grade: SafetyGrade(score)}
	}
	return out
}

// ScoreResult pairs a numeric score with its letter grade.
type ScoreResult struct {
	Score float64
	Grade Grade
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
