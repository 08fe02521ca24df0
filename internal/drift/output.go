package drift

import (
	"unicode/utf8"

	"github.com/roshinpv1/promptshield/internal/coretypes"
	"github.com/roshinpv1/promptshield/internal/model"
	"github.com/roshinpv1/promptshield/internal/scoring"
)

const entropyDivisorFloor = 1e-3

// outputChannel computes the response-length KS statistic and the
// response-entropy delta between two Finding sets (spec.md §4.8.1).
func outputChannel(currentID, baselineID coretypes.ID, current, baseline []model.Finding, threshold float64) []model.DriftFinding {
	currentLengths, currentResponses := responseSamples(current)
	baselineLengths, baselineResponses := responseSamples(baseline)

	var findings []model.DriftFinding

	d := ksStatistic(currentLengths, baselineLengths)
	if f, ok := bracketFinding(currentID, baselineID, model.ChannelOutput, "response_length_ks", d, threshold, 0); ok {
		findings = append(findings, f)
	}

	ec := meanEntropy(currentResponses)
	eb := meanEntropy(baselineResponses)
	denom := eb
	if denom < entropyDivisorFloor {
		denom = entropyDivisorFloor
	}
	entropyDelta := absFloat(ec-eb) / denom
	if f, ok := bracketFinding(currentID, baselineID, model.ChannelOutput, "response_entropy_delta", entropyDelta, threshold, 0); ok {
		findings = append(findings, f)
	}

	return findings
}

func responseSamples(findings []model.Finding) ([]float64, []string) {
	lengths := make([]float64, 0, len(findings))
	responses := make([]string, 0, len(findings))
	for _, f := range findings {
		if f.EvidenceResponse == "" {
			continue
		}
		lengths = append(lengths, float64(utf8.RuneCountInString(f.EvidenceResponse)))
		responses = append(responses, f.EvidenceResponse)
	}
	return lengths, responses
}

// bracketFinding builds a DriftFinding from a metric value using the
// shared severity brackets (scoring.SeverityFromValue), returning ok=false
// when the value falls below the emission floor (no finding, not an
// error).
func bracketFinding(currentID, baselineID coretypes.ID, channel model.DriftChannel, metric string, value, threshold, floor float64) (model.DriftFinding, bool) {
	severity, ok := scoring.SeverityFromValue(value, floor)
	if !ok {
		return model.DriftFinding{}, false
	}
	return model.DriftFinding{
		ID:                  coretypes.NewID(),
		CurrentExecutionID:  currentID,
		BaselineExecutionID: baselineID,
		Channel:             channel,
		Metric:              metric,
		Value:               value,
		Threshold:           threshold,
		Severity:            severity,
	}, true
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// alwaysEmitFinding builds a DriftFinding the same way bracketFinding does,
// except it never omits: values below the lowest bracket still produce a
// finding at DriftLow. Used for the auxiliary metrics SPEC_FULL.md's
// supplemented-features section requires to always be present when their
// channel runs successfully, unlike the primary metrics which omit below
// threshold.
func alwaysEmitFinding(currentID, baselineID coretypes.ID, channel model.DriftChannel, metric string, value, threshold, floor float64) model.DriftFinding {
	severity, ok := scoring.SeverityFromValue(value, floor)
	if !ok {
		severity = model.DriftLow
	}
	return model.DriftFinding{
		ID:                  coretypes.NewID(),
		CurrentExecutionID:  currentID,
		BaselineExecutionID: baselineID,
		Channel:             channel,
		Metric:              metric,
		Value:               value,
		Threshold:           threshold,
		Severity:            severity,
	}
}
