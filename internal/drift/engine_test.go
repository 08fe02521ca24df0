package drift

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roshinpv1/promptshield/internal/baseline"
	"github.com/roshinpv1/promptshield/internal/coretypes"
	"github.com/roshinpv1/promptshield/internal/database"
	"github.com/roshinpv1/promptshield/internal/model"
	"github.com/roshinpv1/promptshield/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, store.Migrate(context.Background(), db))
	return store.New(db)
}

func seedCompletedExecution(t *testing.T, st *store.Store, pipelineID, llmConfigID coretypes.ID) coretypes.ID {
	t.Helper()
	exec := model.Execution{ID: coretypes.NewID(), PipelineID: pipelineID, LLMConfigID: llmConfigID, Status: model.StatusCompleted}
	require.NoError(t, st.CreateExecution(context.Background(), exec))
	return exec.ID
}

func seedFindingWithResponse(t *testing.T, st *store.Store, executionID coretypes.ID, response string) {
	t.Helper()
	f := model.Finding{
		ID:               coretypes.NewID(),
		ExecutionID:      executionID,
		Library:          "garak",
		TestCategory:     "jailbreak",
		Severity:         model.SeverityInfo,
		RiskType:         "jailbreak",
		EvidenceResponse: response,
	}
	require.NoError(t, st.InsertFinding(context.Background(), f))
}

func defaultThresholds() Thresholds {
	return Thresholds{Output: 0.20, Safety: 0.15, Distribution: 0.20, Embedding: 0.30, AgentTool: 0.25}
}

func TestEngine_Compare_EmptyExecutionsYieldNoFindings(t *testing.T) {
	st := newTestStore(t)
	llmConfigID := coretypes.NewID()
	require.NoError(t, st.PutLLMConfig(context.Background(), model.LLMConfig{ID: llmConfigID, Name: "target", EndpointURL: "http://example.com"}))
	pipelineID := coretypes.NewID()
	require.NoError(t, st.PutPipeline(context.Background(), model.Pipeline{ID: pipelineID, Name: "p", LLMConfigID: llmConfigID}))

	baselineID := seedCompletedExecution(t, st, pipelineID, llmConfigID)
	currentID := seedCompletedExecution(t, st, pipelineID, llmConfigID)

	eng := New(st, baseline.New(st), nil)
	findings, err := eng.Compare(context.Background(), currentID, model.ExplicitID(baselineID), defaultThresholds())
	require.NoError(t, err)
	require.Empty(t, findings)
}

func TestEngine_Compare_ResponseLengthShiftEmitsCriticalOutputFinding(t *testing.T) {
	st := newTestStore(t)
	llmConfigID := coretypes.NewID()
	require.NoError(t, st.PutLLMConfig(context.Background(), model.LLMConfig{ID: llmConfigID, Name: "target", EndpointURL: "http://example.com"}))
	pipelineID := coretypes.NewID()
	require.NoError(t, st.PutPipeline(context.Background(), model.Pipeline{ID: pipelineID, Name: "p", LLMConfigID: llmConfigID}))

	baselineExecID := seedCompletedExecution(t, st, pipelineID, llmConfigID)
	for i := 0; i < 20; i++ {
		seedFindingWithResponse(t, st, baselineExecID, repeatString("a", 100))
	}
	currentExecID := seedCompletedExecution(t, st, pipelineID, llmConfigID)
	for i := 0; i < 20; i++ {
		seedFindingWithResponse(t, st, currentExecID, repeatString("b", 500))
	}

	eng := New(st, baseline.New(st), nil)
	findings, err := eng.Compare(context.Background(), currentExecID, model.ExplicitID(baselineExecID), defaultThresholds())
	require.NoError(t, err)

	var ksFinding *model.DriftFinding
	for i := range findings {
		if findings[i].Metric == "response_length_ks" {
			ksFinding = &findings[i]
		}
	}
	require.NotNil(t, ksFinding)
	require.InDelta(t, 1.0, ksFinding.Value, 1e-6)
	require.Equal(t, model.DriftCritical, ksFinding.Severity)
}

func TestEngine_Compare_EmbeddingUnavailableWhenOneSideHasNone(t *testing.T) {
	st := newTestStore(t)
	llmConfigID := coretypes.NewID()
	require.NoError(t, st.PutLLMConfig(context.Background(), model.LLMConfig{ID: llmConfigID, Name: "target", EndpointURL: "http://example.com"}))
	pipelineID := coretypes.NewID()
	require.NoError(t, st.PutPipeline(context.Background(), model.Pipeline{ID: pipelineID, Name: "p", LLMConfigID: llmConfigID}))

	baselineExecID := seedCompletedExecution(t, st, pipelineID, llmConfigID)
	f := model.Finding{ID: coretypes.NewID(), ExecutionID: baselineExecID, Library: "garak", EvidenceResponse: "hi"}
	require.NoError(t, st.InsertFinding(context.Background(), f))
	require.NoError(t, st.InsertEmbedding(context.Background(), model.Embedding{ID: coretypes.NewID(), FindingID: f.ID, ModelName: "m", Vector: []float64{0.1, 0.2}}))

	currentExecID := seedCompletedExecution(t, st, pipelineID, llmConfigID)

	eng := New(st, baseline.New(st), nil)
	findings, err := eng.Compare(context.Background(), currentExecID, model.ExplicitID(baselineExecID), defaultThresholds())
	require.NoError(t, err)

	var found bool
	for _, df := range findings {
		if df.Channel == model.ChannelEmbedding && df.Metric == "embeddings_unavailable" {
			found = true
			require.Equal(t, model.DriftLow, df.Severity)
		}
	}
	require.True(t, found)
}

func TestEngine_Compare_IsIdempotent(t *testing.T) {
	st := newTestStore(t)
	llmConfigID := coretypes.NewID()
	require.NoError(t, st.PutLLMConfig(context.Background(), model.LLMConfig{ID: llmConfigID, Name: "target", EndpointURL: "http://example.com"}))
	pipelineID := coretypes.NewID()
	require.NoError(t, st.PutPipeline(context.Background(), model.Pipeline{ID: pipelineID, Name: "p", LLMConfigID: llmConfigID}))

	baselineExecID := seedCompletedExecution(t, st, pipelineID, llmConfigID)
	seedFindingWithResponse(t, st, baselineExecID, "hello there")
	currentExecID := seedCompletedExecution(t, st, pipelineID, llmConfigID)
	seedFindingWithResponse(t, st, currentExecID, "a much longer response than before for sure")

	eng := New(st, baseline.New(st), nil)
	first, err := eng.Compare(context.Background(), currentExecID, model.ExplicitID(baselineExecID), defaultThresholds())
	require.NoError(t, err)
	second, err := eng.Compare(context.Background(), currentExecID, model.ExplicitID(baselineExecID), defaultThresholds())
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	stored, err := st.ListDriftFindings(context.Background(), currentExecID, baselineExecID)
	require.NoError(t, err)
	require.Equal(t, len(second), len(stored))
}

func seedFindingWithAgentTrace(t *testing.T, st *store.Store, executionID coretypes.ID, tools ...string) {
	t.Helper()
	var invocations []map[string]any
	for _, tool := range tools {
		invocations = append(invocations, map[string]any{"tool": tool})
	}
	f := model.Finding{
		ID:          coretypes.NewID(),
		ExecutionID: executionID,
		Library:     "promptfoo",
		Extra:       map[string]any{"agent_trace": invocations},
	}
	require.NoError(t, st.InsertFinding(context.Background(), f))
}

func TestEngine_Compare_AgentToolChannelSkippedUnlessEnabled(t *testing.T) {
	st := newTestStore(t)
	llmConfigID := coretypes.NewID()
	require.NoError(t, st.PutLLMConfig(context.Background(), model.LLMConfig{ID: llmConfigID, Name: "target", EndpointURL: "http://example.com"}))
	pipelineID := coretypes.NewID()
	require.NoError(t, st.PutPipeline(context.Background(), model.Pipeline{ID: pipelineID, Name: "p", LLMConfigID: llmConfigID}))

	baselineExecID := seedCompletedExecution(t, st, pipelineID, llmConfigID)
	seedFindingWithAgentTrace(t, st, baselineExecID, "search")
	currentExecID := seedCompletedExecution(t, st, pipelineID, llmConfigID)
	seedFindingWithAgentTrace(t, st, currentExecID, "search", "shell_exec")

	disabled := New(st, baseline.New(st), nil)
	findings, err := disabled.Compare(context.Background(), currentExecID, model.ExplicitID(baselineExecID), defaultThresholds())
	require.NoError(t, err)
	for _, f := range findings {
		require.NotEqual(t, model.ChannelAgentTool, f.Channel, "agent-tool channel must not run when EnableAgentTraces is off")
	}

	enabled := New(st, baseline.New(st), nil).WithAgentTraces(true)
	findings, err = enabled.Compare(context.Background(), currentExecID, model.ExplicitID(baselineExecID), defaultThresholds())
	require.NoError(t, err)
	var sawNewTool bool
	for _, f := range findings {
		if f.Channel == model.ChannelAgentTool && f.Metric == "new_tool_introduced" {
			sawNewTool = true
		}
	}
	require.True(t, sawNewTool, "agent-tool channel should run and detect the new tool once enabled")
}

func repeatString(s string, n int) string {
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
