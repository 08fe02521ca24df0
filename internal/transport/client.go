package transport

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/roshinpv1/promptshield/internal/coretypes"
	"github.com/roshinpv1/promptshield/internal/model"
)

const (
	backoffBase   = 500 * time.Millisecond
	backoffFactor = 2.0
	backoffCap    = 8 * time.Second
)

// Client is the single shared HTTP client every probe adapter delegates to
// (spec.md §4.2). It is safe for concurrent use by many workers.
type Client struct {
	http   *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying *http.Client (tests point this at
// an httptest.Server's client, or a transport with a mocked RoundTripper).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client with a connection-pooled default http.Client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:   &http.Client{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send renders the target's payload template with prompt/systemPrompt,
// issues the HTTP request with the configured method/headers, retries
// transport errors and 5xx responses with exponential backoff (spec.md
// §4.2), and extracts the response text. Header values are never logged.
func (c *Client) Send(ctx context.Context, target model.LLMConfig, prompt, systemPrompt string) (string, error) {
	body, err := RenderPayload(target.PayloadTemplate, prompt, systemPrompt)
	if err != nil {
		return "", err
	}

	timeout := time.Duration(target.EffectiveTimeoutSeconds()) * time.Second
	maxRetries := target.EffectiveMaxRetries()

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return "", err
			}
		}

		text, retryable, err := c.attempt(ctx, target, body, timeout)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		c.logger.Warn("llm transport attempt failed, retrying",
			"endpoint", target.EndpointURL, "attempt", attempt+1, "max_retries", maxRetries, "error", err)
	}
	return "", lastErr
}

// attempt performs one HTTP round-trip. The bool return reports whether the
// error is retryable per spec.md §4.2 (transport errors and 5xx are
// retriable; 4xx is not).
func (c *Client) attempt(ctx context.Context, target model.LLMConfig, body []byte, timeout time.Duration) (string, bool, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, target.EffectiveMethod(), target.EndpointURL, bytes.NewReader(body))
	if err != nil {
		return "", false, coretypes.WrapError(coretypes.TRANSPORT_RENDER_FAILED, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range target.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", true, coretypes.WrapRetryableError(coretypes.TRANSPORT_TIMEOUT, "llm request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, coretypes.WrapRetryableError(coretypes.TRANSPORT_TIMEOUT, "failed to read llm response body", err)
	}

	if resp.StatusCode >= 500 {
		return "", true, coretypes.NewRetryableError(coretypes.TRANSPORT_STATUS, "llm endpoint returned "+resp.Status)
	}
	if resp.StatusCode >= 400 {
		return "", false, coretypes.NewError(coretypes.TRANSPORT_STATUS, "llm endpoint returned "+resp.Status)
	}

	text, err := ExtractResponseText(respBody)
	if err != nil {
		return "", false, err
	}
	return text, false, nil
}

// sleepBackoff waits base*factor^(attempt-1) capped at backoffCap, with up
// to 20% positive jitter, or returns ctx.Err() if the context is cancelled
// first.
func sleepBackoff(ctx context.Context, attempt int) error {
	d := backoffBase
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * backoffFactor)
		if d > backoffCap {
			d = backoffCap
			break
		}
	}
	jitter := time.Duration(rand.Int63n(int64(d) / 5))
	d += jitter

	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
