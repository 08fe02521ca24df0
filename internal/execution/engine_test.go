package execution

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roshinpv1/promptshield/internal/coretypes"
	"github.com/roshinpv1/promptshield/internal/database"
	"github.com/roshinpv1/promptshield/internal/model"
	"github.com/roshinpv1/promptshield/internal/probe"
	"github.com/roshinpv1/promptshield/internal/probe/adapters"
	"github.com/roshinpv1/promptshield/internal/store"
	"github.com/roshinpv1/promptshield/internal/transport"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, store.Migrate(context.Background(), db))
	return store.New(db)
}

func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"I cannot help with that."}}]}`))
	}))
}

func TestEngine_Run_CompletesAndPersistsFindings(t *testing.T) {
	st := newTestStore(t)
	srv := echoServer(t)
	t.Cleanup(srv.Close)

	llmConfig := model.LLMConfig{
		ID:              coretypes.NewID(),
		Name:            "target",
		EndpointURL:     srv.URL,
		PayloadTemplate: `{"messages":[{"role":"user","content":"{prompt}"}]}`,
	}
	require.NoError(t, st.PutLLMConfig(context.Background(), llmConfig))

	pipeline := model.Pipeline{
		ID:             coretypes.NewID(),
		Name:           "smoke",
		Libraries:      []string{"garak"},
		TestCategories: []string{"jailbreak", "prompt_injection"},
		LLMConfigID:    llmConfig.ID,
	}
	require.NoError(t, st.PutPipeline(context.Background(), pipeline))

	exec := model.Execution{ID: coretypes.NewID(), PipelineID: pipeline.ID, LLMConfigID: llmConfig.ID, Status: model.StatusPending}
	require.NoError(t, st.CreateExecution(context.Background(), exec))

	client := transport.NewClient()
	registry := probe.NewRegistry()
	registry.Register(adapters.NewGarak(client, nil))

	eng := New(st, registry)
	require.NoError(t, eng.Run(context.Background(), exec.ID))

	got, err := st.GetExecution(context.Background(), exec.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusCompleted, got.Status)
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.CompletedAt)

	n, err := st.CountFindingsByExecution(context.Background(), exec.ID)
	require.NoError(t, err)
	require.Greater(t, n, 0)
}

func TestEngine_Run_UnregisteredAdapterIsSkippedNotFatal(t *testing.T) {
	st := newTestStore(t)

	llmConfig := model.LLMConfig{ID: coretypes.NewID(), Name: "target", EndpointURL: "http://127.0.0.1:0", PayloadTemplate: `{"messages":[{"role":"user","content":"{prompt}"}]}`}
	require.NoError(t, st.PutLLMConfig(context.Background(), llmConfig))

	pipeline := model.Pipeline{
		ID:             coretypes.NewID(),
		Name:           "unknown-lib",
		Libraries:      []string{"nonexistent"},
		TestCategories: []string{"red_team"},
		LLMConfigID:    llmConfig.ID,
	}
	require.NoError(t, st.PutPipeline(context.Background(), pipeline))

	exec := model.Execution{ID: coretypes.NewID(), PipelineID: pipeline.ID, LLMConfigID: llmConfig.ID, Status: model.StatusPending}
	require.NoError(t, st.CreateExecution(context.Background(), exec))

	eng := New(st, probe.NewRegistry())
	require.NoError(t, eng.Run(context.Background(), exec.ID))

	got, err := st.GetExecution(context.Background(), exec.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusCompleted, got.Status)
}

func TestEngine_Run_RejectsNonPendingExecution(t *testing.T) {
	st := newTestStore(t)

	llmConfig := model.LLMConfig{ID: coretypes.NewID(), Name: "target", EndpointURL: "http://127.0.0.1:0"}
	require.NoError(t, st.PutLLMConfig(context.Background(), llmConfig))
	pipeline := model.Pipeline{ID: coretypes.NewID(), Name: "p", LLMConfigID: llmConfig.ID}
	require.NoError(t, st.PutPipeline(context.Background(), pipeline))

	exec := model.Execution{ID: coretypes.NewID(), PipelineID: pipeline.ID, LLMConfigID: llmConfig.ID, Status: model.StatusCompleted}
	require.NoError(t, st.CreateExecution(context.Background(), exec))

	eng := New(st, probe.NewRegistry())
	err := eng.Run(context.Background(), exec.ID)
	require.Error(t, err)
}

func TestEngine_Cancel_TransitionsRunningToCancelled(t *testing.T) {
	st := newTestStore(t)

	llmConfig := model.LLMConfig{ID: coretypes.NewID(), Name: "target", EndpointURL: "http://127.0.0.1:0"}
	require.NoError(t, st.PutLLMConfig(context.Background(), llmConfig))
	pipeline := model.Pipeline{ID: coretypes.NewID(), Name: "p", LLMConfigID: llmConfig.ID}
	require.NoError(t, st.PutPipeline(context.Background(), pipeline))

	exec := model.Execution{ID: coretypes.NewID(), PipelineID: pipeline.ID, LLMConfigID: llmConfig.ID, Status: model.StatusRunning}
	require.NoError(t, st.CreateExecution(context.Background(), exec))

	eng := New(st, probe.NewRegistry())
	require.NoError(t, eng.Cancel(context.Background(), exec.ID))

	got, err := st.GetExecution(context.Background(), exec.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusCancelled, got.Status)
}
