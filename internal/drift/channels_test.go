package drift

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roshinpv1/promptshield/internal/coretypes"
	"github.com/roshinpv1/promptshield/internal/model"
)

func findingWithSeverity(executionID coretypes.ID, sev model.Severity) model.Finding {
	return model.Finding{ID: coretypes.NewID(), ExecutionID: executionID, Library: "garak", Severity: sev}
}

func TestSafetyChannel_NoSeverityShiftYieldsNoFindings(t *testing.T) {
	currentID, baselineID := coretypes.NewID(), coretypes.NewID()
	findings := []model.Finding{
		findingWithSeverity(currentID, model.SeverityLow),
		findingWithSeverity(currentID, model.SeverityLow),
	}
	baseline := []model.Finding{
		findingWithSeverity(baselineID, model.SeverityLow),
		findingWithSeverity(baselineID, model.SeverityLow),
	}
	result := safetyChannel(currentID, baselineID, findings, baseline, 0.15)
	require.Empty(t, result)
}

func TestSafetyChannel_NewCriticalFindingsEmitSeverityCountDelta(t *testing.T) {
	currentID, baselineID := coretypes.NewID(), coretypes.NewID()
	var current []model.Finding
	for i := 0; i < 10; i++ {
		current = append(current, findingWithSeverity(currentID, model.SeverityCritical))
	}
	var baseline []model.Finding
	for i := 0; i < 10; i++ {
		baseline = append(baseline, findingWithSeverity(baselineID, model.SeverityLow))
	}

	result := safetyChannel(currentID, baselineID, current, baseline, 0.15)

	var sawScoreDelta, sawCountDelta bool
	for _, f := range result {
		require.Equal(t, model.ChannelSafety, f.Channel)
		switch f.Metric {
		case "safety_score_delta":
			sawScoreDelta = true
		case "severity_count_delta_critical":
			sawCountDelta = true
			require.Equal(t, 10, f.Details["delta"])
		}
	}
	require.True(t, sawScoreDelta, "expected a safety_score_delta finding")
	require.True(t, sawCountDelta, "expected a severity_count_delta_critical finding")
}

func TestDistributionChannel_IdenticalDistributionsYieldOnlyAuxiliaryMetric(t *testing.T) {
	currentID, baselineID := coretypes.NewID(), coretypes.NewID()
	current := []model.Finding{
		findingWithSeverity(currentID, model.SeverityLow),
		findingWithSeverity(currentID, model.SeverityHigh),
	}
	baseline := []model.Finding{
		findingWithSeverity(baselineID, model.SeverityLow),
		findingWithSeverity(baselineID, model.SeverityHigh),
	}

	result := distributionChannel(currentID, baselineID, current, baseline, 0.20)

	require.Len(t, result, 1)
	require.Equal(t, "severity_distribution_l1", result[0].Metric)
	require.InDelta(t, 0.0, result[0].Value, 1e-9)
}

func TestDistributionChannel_DivergentDistributionsEmitCriticalPSI(t *testing.T) {
	currentID, baselineID := coretypes.NewID(), coretypes.NewID()
	var current []model.Finding
	for i := 0; i < 20; i++ {
		current = append(current, findingWithSeverity(currentID, model.SeverityCritical))
	}
	var baseline []model.Finding
	for i := 0; i < 20; i++ {
		baseline = append(baseline, findingWithSeverity(baselineID, model.SeverityInfo))
	}

	result := distributionChannel(currentID, baselineID, current, baseline, 0.20)

	var psiFinding *model.DriftFinding
	for i := range result {
		if result[i].Metric == "severity_psi" {
			psiFinding = &result[i]
		}
	}
	require.NotNil(t, psiFinding)
	require.Equal(t, model.DriftCritical, psiFinding.Severity)
}

func toolTrace(tools ...string) model.AgentTrace {
	var invs []model.ToolInvocation
	for _, tool := range tools {
		invs = append(invs, model.ToolInvocation{Tool: tool})
	}
	return model.AgentTrace{FindingID: coretypes.NewID(), Invocations: invs}
}

func TestAgentToolChannel_NoTracesOnEitherSideYieldsNoFindings(t *testing.T) {
	currentID, baselineID := coretypes.NewID(), coretypes.NewID()
	require.Empty(t, agentToolChannel(currentID, baselineID, nil, []model.AgentTrace{toolTrace("search")}, 0.25))
	require.Empty(t, agentToolChannel(currentID, baselineID, []model.AgentTrace{toolTrace("search")}, nil, 0.25))
}

func TestAgentToolChannel_IdenticalDistributionsYieldNoChiSquaredFinding(t *testing.T) {
	currentID, baselineID := coretypes.NewID(), coretypes.NewID()
	current := []model.AgentTrace{toolTrace("search", "fetch", "search")}
	baseline := []model.AgentTrace{toolTrace("search", "fetch", "search")}

	result := agentToolChannel(currentID, baselineID, current, baseline, 0.25)

	for _, f := range result {
		require.NotEqual(t, "tool_frequency_chi2", f.Metric,
			"identical tool-call distributions must not raise a chi-squared drift finding")
	}
}

func TestAgentToolChannel_NewToolIntroducedIsFlaggedLow(t *testing.T) {
	currentID, baselineID := coretypes.NewID(), coretypes.NewID()
	current := []model.AgentTrace{toolTrace("search", "shell_exec")}
	baseline := []model.AgentTrace{toolTrace("search")}

	result := agentToolChannel(currentID, baselineID, current, baseline, 0.25)

	var found bool
	for _, f := range result {
		if f.Metric == "new_tool_introduced" {
			found = true
			require.Equal(t, model.DriftLow, f.Severity)
			require.Equal(t, "shell_exec", f.Details["tool"])
		}
	}
	require.True(t, found)
}

func TestAgentToolChannel_RepeatedToolCallIsFlaggedAsLoop(t *testing.T) {
	currentID, baselineID := coretypes.NewID(), coretypes.NewID()
	current := []model.AgentTrace{toolTrace("search", "search", "search", "search")}
	baseline := []model.AgentTrace{toolTrace("search")}

	result := agentToolChannel(currentID, baselineID, current, baseline, 0.25)

	var found bool
	for _, f := range result {
		if f.Metric == "tool_call_loop" {
			found = true
			require.Equal(t, model.DriftMedium, f.Severity)
			require.Equal(t, "search", f.Details["tool"])
		}
	}
	require.True(t, found)
}
