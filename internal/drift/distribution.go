package drift

import (
	"github.com/roshinpv1/promptshield/internal/coretypes"
	"github.com/roshinpv1/promptshield/internal/model"
	"github.com/roshinpv1/promptshield/internal/scoring"
)

const psiZeroGuard = 1e-4

// distributionChannel computes the Population Stability Index between two
// executions' severity distributions (spec.md §4.8.3).
func distributionChannel(currentID, baselineID coretypes.ID, current, baseline []model.Finding, threshold float64) []model.DriftFinding {
	p := severityFractions(baseline)
	q := severityFractions(current)
	value := psi(p, q, psiZeroGuard)

	var findings []model.DriftFinding
	if severity, ok := psiSeverity(value, threshold); ok {
		findings = append(findings, model.DriftFinding{
			ID:                  coretypes.NewID(),
			CurrentExecutionID:  currentID,
			BaselineExecutionID: baselineID,
			Channel:             model.ChannelDistribution,
			Metric:              "severity_psi",
			Value:               value,
			Threshold:           threshold,
			Severity:            severity,
		})
	}

	// severity_distribution_l1 is an auxiliary richer-distribution-analysis
	// metric (spec.md §4.8.3's "optional auxiliary metrics"), emitted
	// whenever the channel runs successfully (SPEC_FULL.md §11.3).
	l1 := severityDistributionL1(p, q)
	findings = append(findings, alwaysEmitFinding(currentID, baselineID, model.ChannelDistribution, "severity_distribution_l1", l1, threshold, 0))

	return findings
}

// severityDistributionL1 sums the absolute fraction difference per bucket,
// a simpler companion statistic to PSI that stays well-behaved even when
// PSI's log ratio is dominated by a near-zero bucket.
func severityDistributionL1(p, q []float64) float64 {
	var sum float64
	for i := range p {
		sum += absFloat(q[i] - p[i])
	}
	return sum
}

// severityFractions returns the fraction of findings in each severity
// bucket, in model.Severities order, over len(findings) (0 when empty).
func severityFractions(findings []model.Finding) []float64 {
	counts := scoring.CountBySeverity(findings)
	total := len(findings)
	fractions := make([]float64, len(model.Severities))
	if total == 0 {
		return fractions
	}
	for i, sev := range model.Severities {
		fractions[i] = float64(counts[sev]) / float64(total)
	}
	return fractions
}

// psiSeverity implements spec.md §4.8.3's PSI-specific brackets, distinct
// from the shared output-drift brackets: >=0.25 critical, >=0.15 high,
// >=0.10 medium, and below that "low, emitted only if >= threshold" — a
// bucket that is unreachable under the default threshold of 0.20 (which
// exceeds 0.10), by construction, unless an operator configures a lower
// distribution threshold.
func psiSeverity(value, threshold float64) (model.DriftSeverity, bool) {
	switch {
	case value >= 0.25:
		return model.DriftCritical, true
	case value >= 0.15:
		return model.DriftHigh, true
	case value >= 0.10:
		return model.DriftMedium, true
	case value >= threshold:
		return model.DriftLow, true
	default:
		return "", false
	}
}
