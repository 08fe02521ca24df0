package baseline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

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

func seedPipelineAndConfig(t *testing.T, st *store.Store) (coretypes.ID, coretypes.ID) {
	t.Helper()
	llmConfigID := coretypes.NewID()
	require.NoError(t, st.PutLLMConfig(context.Background(), model.LLMConfig{ID: llmConfigID, Name: "target", EndpointURL: "http://example.com"}))
	pipelineID := coretypes.NewID()
	require.NoError(t, st.PutPipeline(context.Background(), model.Pipeline{ID: pipelineID, Name: "p", LLMConfigID: llmConfigID}))
	return pipelineID, llmConfigID
}

func TestSelector_ExplicitID_RequiresCompleted(t *testing.T) {
	st := newTestStore(t)
	pipelineID, llmConfigID := seedPipelineAndConfig(t, st)

	completed := model.Execution{ID: coretypes.NewID(), PipelineID: pipelineID, LLMConfigID: llmConfigID, Status: model.StatusCompleted}
	require.NoError(t, st.CreateExecution(context.Background(), completed))
	running := model.Execution{ID: coretypes.NewID(), PipelineID: pipelineID, LLMConfigID: llmConfigID, Status: model.StatusRunning}
	require.NoError(t, st.CreateExecution(context.Background(), running))

	sel := New(st)

	got, err := sel.Resolve(context.Background(), coretypes.NewID(), model.ExplicitID(completed.ID), false)
	require.NoError(t, err)
	require.Equal(t, completed.ID, got)

	_, err = sel.Resolve(context.Background(), coretypes.NewID(), model.ExplicitID(running.ID), false)
	require.Error(t, err)
	require.True(t, coretypes.NewError(coretypes.BASELINE_NOT_USABLE, "").Is(err))
}

func TestSelector_Tag_ResolvesThroughBaseline(t *testing.T) {
	st := newTestStore(t)
	pipelineID, llmConfigID := seedPipelineAndConfig(t, st)

	completed := model.Execution{ID: coretypes.NewID(), PipelineID: pipelineID, LLMConfigID: llmConfigID, Status: model.StatusCompleted}
	require.NoError(t, st.CreateExecution(context.Background(), completed))

	tag := "release-1.0"
	require.NoError(t, st.CreateBaseline(context.Background(), model.Baseline{
		ID: coretypes.NewID(), ExecutionID: completed.ID, Name: "release baseline", Tag: &tag,
	}))

	sel := New(st)
	got, err := sel.Resolve(context.Background(), coretypes.NewID(), model.ByTag(tag), false)
	require.NoError(t, err)
	require.Equal(t, completed.ID, got)

	_, err = sel.Resolve(context.Background(), coretypes.NewID(), model.ByTag("missing"), false)
	require.Error(t, err)
}

func TestSelector_Previous_RequiresEarlierCompletedExecution(t *testing.T) {
	st := newTestStore(t)
	pipelineID, llmConfigID := seedPipelineAndConfig(t, st)

	first := model.Execution{ID: coretypes.NewID(), PipelineID: pipelineID, LLMConfigID: llmConfigID, Status: model.StatusCompleted}
	require.NoError(t, st.CreateExecution(context.Background(), first))
	second := model.Execution{ID: coretypes.NewID(), PipelineID: pipelineID, LLMConfigID: llmConfigID, Status: model.StatusCompleted}
	require.NoError(t, st.CreateExecution(context.Background(), second))

	sel := New(st)
	got, err := sel.Resolve(context.Background(), second.ID, model.Previous(), false)
	require.NoError(t, err)
	require.Equal(t, first.ID, got)

	_, err = sel.Resolve(context.Background(), first.ID, model.Previous(), false)
	require.Error(t, err)
}

func TestSelector_RejectsSelfReference(t *testing.T) {
	st := newTestStore(t)
	pipelineID, llmConfigID := seedPipelineAndConfig(t, st)

	exec := model.Execution{ID: coretypes.NewID(), PipelineID: pipelineID, LLMConfigID: llmConfigID, Status: model.StatusCompleted}
	require.NoError(t, st.CreateExecution(context.Background(), exec))

	sel := New(st)
	_, err := sel.Resolve(context.Background(), exec.ID, model.ExplicitID(exec.ID), false)
	require.Error(t, err)

	got, err := sel.Resolve(context.Background(), exec.ID, model.ExplicitID(exec.ID), true)
	require.NoError(t, err)
	require.Equal(t, exec.ID, got)
}
