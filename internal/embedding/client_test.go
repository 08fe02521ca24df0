package embedding

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

// seedExecution creates the LLMConfig, Pipeline and Execution rows a
// Finding's execution_id foreign key needs, returning the execution id.
func seedExecution(t *testing.T, st *store.Store) coretypes.ID {
	t.Helper()
	ctx := context.Background()
	llmConfigID := coretypes.NewID()
	require.NoError(t, st.PutLLMConfig(ctx, model.LLMConfig{ID: llmConfigID, Name: "target", EndpointURL: "http://example.com"}))
	pipelineID := coretypes.NewID()
	require.NoError(t, st.PutPipeline(ctx, model.Pipeline{ID: pipelineID, Name: "p", LLMConfigID: llmConfigID}))
	exec := model.Execution{ID: coretypes.NewID(), PipelineID: pipelineID, LLMConfigID: llmConfigID, Status: model.StatusCompleted}
	require.NoError(t, st.CreateExecution(ctx, exec))
	return exec.ID
}

func seedFinding(t *testing.T, st *store.Store, executionID coretypes.ID, response string) coretypes.ID {
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
	return f.ID
}

func TestClient_GenerateForExecution_BareArrayShape(t *testing.T) {
	st := newTestStore(t)
	executionID := seedExecution(t, st)
	seedFinding(t, st, executionID, "hello")
	seedFinding(t, st, executionID, "world")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[0.1, 0.2], [0.3, 0.4]]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "test-model", st)
	require.NoError(t, c.GenerateForExecution(context.Background(), executionID))

	embeddings, err := st.ListEmbeddingsForExecution(context.Background(), executionID)
	require.NoError(t, err)
	require.Len(t, embeddings, 2)
}

func TestClient_GenerateForExecution_DataShape(t *testing.T) {
	st := newTestStore(t)
	executionID := seedExecution(t, st)
	seedFinding(t, st, executionID, "hello")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"embedding":[0.5,0.6,0.7]}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "test-model", st)
	require.NoError(t, c.GenerateForExecution(context.Background(), executionID))

	embeddings, err := st.ListEmbeddingsForExecution(context.Background(), executionID)
	require.NoError(t, err)
	require.Len(t, embeddings, 1)
	require.Equal(t, []float64{0.5, 0.6, 0.7}, embeddings[0].Vector)
}

func TestClient_GenerateForExecution_ServiceDownDegradesGracefully(t *testing.T) {
	st := newTestStore(t)
	executionID := seedExecution(t, st)
	seedFinding(t, st, executionID, "hello")

	c := New("http://127.0.0.1:0", "test-model", st)
	require.NoError(t, c.GenerateForExecution(context.Background(), executionID))

	embeddings, err := st.ListEmbeddingsForExecution(context.Background(), executionID)
	require.NoError(t, err)
	require.Len(t, embeddings, 0)
}

func TestClient_GenerateForExecution_NoServiceConfiguredIsNoop(t *testing.T) {
	st := newTestStore(t)
	executionID := seedExecution(t, st)
	seedFinding(t, st, executionID, "hello")

	c := New("", "test-model", st)
	require.NoError(t, c.GenerateForExecution(context.Background(), executionID))
}
