package transport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roshinpv1/promptshield/internal/coretypes"
	"github.com/roshinpv1/promptshield/internal/model"
)

func testLLMConfig(url string) model.LLMConfig {
	return model.LLMConfig{
		EndpointURL:     url,
		PayloadTemplate: `{"prompt": "{prompt}"}`,
		MaxRetries:      2,
		TimeoutSeconds:  5,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nopWriter{}, nil))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestClient_Send_FourXXIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(WithHTTPClient(srv.Client()), WithLogger(discardLogger()))
	_, err := c.Send(context.Background(), testLLMConfig(srv.URL), "hi", "")

	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "a 4xx response should not be retried")

	var coreErr *coretypes.CoreError
	require.True(t, errors.As(err, &coreErr))
	assert.False(t, coreErr.Retryable)
	assert.Equal(t, coretypes.TRANSPORT_STATUS, coreErr.Code)
}

func TestClient_Send_FiveXXIsRetriedUpToMaxRetriesThenFails(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testLLMConfig(srv.URL)
	cfg.MaxRetries = 2

	c := NewClient(WithHTTPClient(srv.Client()), WithLogger(discardLogger()))
	_, err := c.Send(context.Background(), cfg, "hi", "")

	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "the initial attempt plus MaxRetries retries should all fire")

	var coreErr *coretypes.CoreError
	require.True(t, errors.As(err, &coreErr))
	assert.True(t, coreErr.Retryable)
}

func TestClient_Send_SucceedsAfterTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response": "all good now"}`))
	}))
	defer srv.Close()

	cfg := testLLMConfig(srv.URL)
	cfg.MaxRetries = 3

	c := NewClient(WithHTTPClient(srv.Client()), WithLogger(discardLogger()))
	text, err := c.Send(context.Background(), cfg, "hi", "")

	require.NoError(t, err)
	assert.Equal(t, "all good now", text)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_Send_NetworkErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	closedURL := srv.URL
	srv.Close()

	cfg := testLLMConfig(closedURL)
	cfg.MaxRetries = 1

	c := NewClient(WithLogger(discardLogger()))
	_, err := c.Send(context.Background(), cfg, "hi", "")

	require.Error(t, err)
	var coreErr *coretypes.CoreError
	require.True(t, errors.As(err, &coreErr))
	assert.True(t, coreErr.Retryable)
	assert.Equal(t, coretypes.TRANSPORT_TIMEOUT, coreErr.Code)
}

func TestClient_Send_ContextCancellationDuringBackoffReturnsPromptly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testLLMConfig(srv.URL)
	cfg.MaxRetries = 5

	ctx, cancel := context.WithCancel(context.Background())
	c := NewClient(WithHTTPClient(srv.Client()), WithLogger(discardLogger()))

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := c.Send(ctx, cfg, "hi", "")
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, elapsed, 8*time.Second, "cancellation should interrupt the backoff sleep rather than waiting out the full exponential schedule")
}

func TestClient_Send_ExtractionFailureIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error": "rate limited by upstream"}`))
	}))
	defer srv.Close()

	c := NewClient(WithHTTPClient(srv.Client()), WithLogger(discardLogger()))
	_, err := c.Send(context.Background(), testLLMConfig(srv.URL), "hi", "")

	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "an error envelope in a 200 response should not be retried")
}
