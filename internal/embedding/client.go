// Package embedding implements the Embedding Client post-execution hook
// (spec.md §4.5): it batches each Finding's evidence_response text, calls
// the external embedding service over HTTP, and persists one Embedding
// per Finding. It is grounded on the same transport.Client request/response
// pattern as the probe adapters, but speaks the embedding service's own
// {texts, model} contract instead of an LLMConfig's payload template.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/roshinpv1/promptshield/internal/coretypes"
	"github.com/roshinpv1/promptshield/internal/model"
	"github.com/roshinpv1/promptshield/internal/observability"
	"github.com/roshinpv1/promptshield/internal/store"
)

// defaultBatchSize matches spec.md §4.5's batch size B.
const defaultBatchSize = 32

// Client generates embeddings for Finding evidence_response text via an
// external HTTP service and persists them.
type Client struct {
	http      *http.Client
	store     *store.Store
	logger    *slog.Logger
	serviceURL string
	modelName  string
	batchSize  int
	timeout    time.Duration
	recorder   *observability.Recorder
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithBatchSize overrides the default batch size of 32.
func WithBatchSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRecorder attaches an observability.Recorder; batch-size metrics are
// emitted only when one is set (SPEC_FULL.md §10).
func WithRecorder(r *observability.Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// New builds a Client targeting serviceURL and requesting vectors from
// modelName. st is where resulting Embeddings are persisted.
func New(serviceURL, modelName string, st *store.Store, opts ...Option) *Client {
	c := &Client{
		http:       &http.Client{},
		store:      st,
		logger:     slog.Default(),
		serviceURL: serviceURL,
		modelName:  modelName,
		batchSize:  defaultBatchSize,
		timeout:    30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GenerateForExecution is the post-execution hook (spec.md §4.4 step 5,
// §4.5): it loads every Finding for executionID, batches their
// evidence_response strings, and persists an Embedding per Finding. A
// disabled/empty serviceURL, an unreachable service, or a malformed
// payload all degrade gracefully — this method logs and returns nil so an
// embedding failure never flips a Completed execution to Failed.
func (c *Client) GenerateForExecution(ctx context.Context, executionID coretypes.ID) error {
	if c.serviceURL == "" {
		c.logger.Debug("embedding service not configured, skipping", "execution_id", executionID)
		return nil
	}

	findings, err := c.store.ListFindings(ctx, executionID)
	if err != nil {
		return fmt.Errorf("list findings for embedding: %w", err)
	}

	type target struct {
		findingID coretypes.ID
		text      string
	}
	var targets []target
	for _, f := range findings {
		if f.EvidenceResponse == "" {
			continue
		}
		targets = append(targets, target{findingID: f.ID, text: f.EvidenceResponse})
	}
	if len(targets) == 0 {
		return nil
	}

	for start := 0; start < len(targets); start += c.batchSize {
		end := start + c.batchSize
		if end > len(targets) {
			end = len(targets)
		}
		batch := targets[start:end]

		if c.recorder != nil {
			c.recorder.RecordEmbeddingBatchSize(int64(len(batch)))
		}

		texts := make([]string, len(batch))
		for i, t := range batch {
			texts[i] = t.text
		}

		vectors, err := c.embed(ctx, texts)
		if err != nil {
			c.logger.Warn("embedding service call failed, proceeding without embeddings for this batch",
				"execution_id", executionID, "batch_start", start, "error", err)
			continue
		}
		if len(vectors) != len(batch) {
			c.logger.Warn("embedding service returned mismatched vector count, skipping batch",
				"execution_id", executionID, "want", len(batch), "got", len(vectors))
			continue
		}

		for i, t := range batch {
			e := model.Embedding{ID: coretypes.NewID(), FindingID: t.findingID, ModelName: c.modelName, Vector: vectors[i]}
			if err := c.store.InsertEmbedding(ctx, e); err != nil {
				c.logger.Warn("failed to persist embedding", "finding_id", t.findingID, "error", err)
			}
		}
	}
	return nil
}

// embed sends one {texts, model} request and returns the parsed vectors,
// rejecting a response whose vectors are not all the same length
// (spec.md §6).
func (c *Client) embed(ctx context.Context, texts []string) ([][]float64, error) {
	payload, err := json.Marshal(map[string]any{"texts": texts, "model": c.modelName})
	if err != nil {
		return nil, coretypes.WrapError(coretypes.EMBEDDING_MALFORMED_RESPONSE, "failed to marshal embedding request", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.serviceURL, bytes.NewReader(payload))
	if err != nil {
		return nil, coretypes.WrapError(coretypes.EMBEDDING_SERVICE_UNAVAILABLE, "failed to build embedding request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, coretypes.WrapError(coretypes.EMBEDDING_SERVICE_UNAVAILABLE, "embedding request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, coretypes.WrapError(coretypes.EMBEDDING_SERVICE_UNAVAILABLE, "failed to read embedding response", err)
	}
	if resp.StatusCode >= 400 {
		return nil, coretypes.NewError(coretypes.EMBEDDING_SERVICE_UNAVAILABLE, "embedding service returned "+resp.Status)
	}

	return parseVectors(body)
}

// parseVectors accepts the three response shapes spec.md §6 requires: a
// bare [[float,...],...]; {embeddings: [...]}; or {data: [{embedding:
// [...]}, ...]}. All vectors must share one length.
func parseVectors(body []byte) ([][]float64, error) {
	var bare [][]float64
	if err := json.Unmarshal(body, &bare); err == nil {
		return validateUniform(bare)
	}

	var withEmbeddings struct {
		Embeddings [][]float64 `json:"embeddings"`
	}
	if err := json.Unmarshal(body, &withEmbeddings); err == nil && withEmbeddings.Embeddings != nil {
		return validateUniform(withEmbeddings.Embeddings)
	}

	var withData struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &withData); err == nil && withData.Data != nil {
		vectors := make([][]float64, len(withData.Data))
		for i, d := range withData.Data {
			vectors[i] = d.Embedding
		}
		return validateUniform(vectors)
	}

	return nil, coretypes.NewError(coretypes.EMBEDDING_MALFORMED_RESPONSE, "embedding response matched none of the accepted shapes")
}

func validateUniform(vectors [][]float64) ([][]float64, error) {
	if len(vectors) == 0 {
		return nil, coretypes.NewError(coretypes.EMBEDDING_MALFORMED_RESPONSE, "embedding response contained no vectors")
	}
	want := len(vectors[0])
	for _, v := range vectors {
		if len(v) != want {
			return nil, coretypes.NewError(coretypes.EMBEDDING_MALFORMED_RESPONSE, "embedding response vectors have inconsistent length")
		}
	}
	return vectors, nil
}
