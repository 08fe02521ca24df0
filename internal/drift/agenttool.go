package drift

import (
	"github.com/roshinpv1/promptshield/internal/coretypes"
	"github.com/roshinpv1/promptshield/internal/model"
)

const chiSquaredEps = 1e-4

// agentToolChannel compares tool-call behavior between two executions
// (spec.md §4.8.5). It is only emitted when both sides have at least one
// AgentTrace.
func agentToolChannel(currentID, baselineID coretypes.ID, current, baseline []model.AgentTrace, threshold float64) []model.DriftFinding {
	if len(current) == 0 || len(baseline) == 0 {
		return nil
	}

	var findings []model.DriftFinding

	currentFreq, currentTotal := toolFrequencies(current)
	baselineFreq, baselineTotal := toolFrequencies(baseline)
	expected := expectedFrequencies(currentFreq, baselineFreq, currentTotal, baselineTotal)
	chi2 := chiSquared(currentFreq, expected, chiSquaredEps)
	n := currentTotal + baselineTotal
	normalizedChi2 := chi2 / (chi2 + float64(n))
	if f, ok := bracketFinding(currentID, baselineID, model.ChannelAgentTool, "tool_frequency_chi2", normalizedChi2, threshold, 0); ok {
		findings = append(findings, f)
	}

	currentBigrams := toolBigrams(current)
	baselineBigrams := toolBigrams(baseline)
	jaccard := jaccardDistance(currentBigrams, baselineBigrams)
	if f, ok := bracketFinding(currentID, baselineID, model.ChannelAgentTool, "tool_sequence_jaccard", jaccard, threshold, 0); ok {
		findings = append(findings, f)
	}

	for tool := range currentFreq {
		if baselineFreq[tool] > 0 {
			continue
		}
		findings = append(findings, model.DriftFinding{
			ID:                  coretypes.NewID(),
			CurrentExecutionID:  currentID,
			BaselineExecutionID: baselineID,
			Channel:             model.ChannelAgentTool,
			Metric:              "new_tool_introduced",
			Value:               1.0,
			Threshold:           threshold,
			Severity:            model.DriftLow,
			Details:             map[string]any{"tool": tool},
		})
	}

	baselineLoops := loopedTools(baseline)
	for tool, looped := range loopedTools(current) {
		if !looped {
			continue
		}
		if baselineLoops[tool] {
			continue
		}
		findings = append(findings, model.DriftFinding{
			ID:                  coretypes.NewID(),
			CurrentExecutionID:  currentID,
			BaselineExecutionID: baselineID,
			Channel:             model.ChannelAgentTool,
			Metric:              "tool_call_loop",
			Value:               1.0,
			Threshold:           threshold,
			Severity:            model.DriftMedium,
			Details:             map[string]any{"tool": tool},
		})
	}

	return findings
}

func toolFrequencies(traces []model.AgentTrace) (map[string]float64, int) {
	freq := make(map[string]float64)
	total := 0
	for _, t := range traces {
		for _, inv := range t.Invocations {
			freq[inv.Tool]++
			total++
		}
	}
	return freq, total
}

// expectedFrequencies scales the baseline distribution to current's total
// count, so a chi-squared test against it compares current's observed
// counts to what the baseline's shape would predict at current's sample
// size (spec.md §4.8.5) — identical distributions yield a zero statistic
// rather than the non-zero floor a naive observed/observed+baseline
// comparison would produce. Tools that only appear in current are included
// with an expected count of zero (padded by chiSquared's eps), so their
// contribution is still captured.
func expectedFrequencies(currentFreq, baselineFreq map[string]float64, currentTotal, baselineTotal int) map[string]float64 {
	scale := 1.0
	if baselineTotal > 0 {
		scale = float64(currentTotal) / float64(baselineTotal)
	}
	expected := make(map[string]float64, len(currentFreq)+len(baselineFreq))
	for k, v := range baselineFreq {
		expected[k] = v * scale
	}
	for k := range currentFreq {
		if _, ok := expected[k]; !ok {
			expected[k] = 0
		}
	}
	return expected
}

// toolBigrams counts consecutive (tool_i, tool_i+1) pairs within each
// trace independently (no cross-trace bigrams), per spec.md §4.8.5.
func toolBigrams(traces []model.AgentTrace) map[string]int {
	bigrams := make(map[string]int)
	for _, t := range traces {
		for i := 0; i+1 < len(t.Invocations); i++ {
			key := t.Invocations[i].Tool + "->" + t.Invocations[i+1].Tool
			bigrams[key]++
		}
	}
	return bigrams
}

// loopedTools reports, per tool, whether any trace contains >=3
// consecutive invocations of that tool.
func loopedTools(traces []model.AgentTrace) map[string]bool {
	looped := make(map[string]bool)
	for _, t := range traces {
		run := 0
		var last string
		for _, inv := range t.Invocations {
			if inv.Tool == last {
				run++
			} else {
				run = 1
				last = inv.Tool
			}
			if run >= 3 {
				looped[inv.Tool] = true
			}
		}
	}
	return looped
}
