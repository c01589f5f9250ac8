// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/hearthai/cac/internal/cac/ctxerr"
	"github.com/hearthai/cac/internal/cac/types"
)

// embedReq is the embedding endpoint's request body, shaped after the
// teacher's Ollama /api/embed contract.
type embedReq struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// embedResp is the embedding endpoint's response body.
type embedResp struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// defaultMaxChars is the character budget a single embed() call truncates
// input to, per §6's "truncates input to a documented character budget".
const defaultMaxChars = 8000

// defaultEmbedRPS bounds steady-state outbound call rate to the embedding
// service. This is a proactive client-side throttle independent of the
// Retry-After-driven backoff below: backoff only kicks in once the service
// has already rejected a call, while this caps how fast calls go out in the
// first place.
const defaultEmbedRPS = 20

// HTTPClient is an Embedder backed by an HTTP embedding service (Ollama's
// /api/embed contract or compatible). It retries transient failures with
// bounded exponential backoff, honors explicit rate-limit hints via the
// Retry-After header, and rate-limits outbound calls proactively.
type HTTPClient struct {
	url         string
	model       string
	client      *http.Client
	logger      *slog.Logger
	maxChars    int
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	limiter     *rate.Limiter
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithMaxChars overrides the truncation budget.
func WithMaxChars(n int) Option {
	return func(c *HTTPClient) { c.maxChars = n }
}

// WithRetry overrides the retry attempt count and backoff bounds.
func WithRetry(maxAttempts int, baseDelay, maxDelay time.Duration) Option {
	return func(c *HTTPClient) {
		c.maxAttempts = maxAttempts
		c.baseDelay = baseDelay
		c.maxDelay = maxDelay
	}
}

// WithHTTPClient overrides the underlying *http.Client (tests use this to
// point at an httptest.Server).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.client = hc }
}

// WithRateLimit overrides the steady-state outbound call rate. A limiter
// with an unlimited rate effectively disables throttling, which tests use
// to avoid waiting on the limiter.
func WithRateLimit(rps rate.Limit, burst int) Option {
	return func(c *HTTPClient) { c.limiter = rate.NewLimiter(rps, burst) }
}

// NewHTTPClient builds an embedding client. It reads EMBEDDING_SERVICE_URL
// and EMBEDDING_MODEL from the environment, falling back to a local Ollama
// instance.
func NewHTTPClient(logger *slog.Logger, opts ...Option) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}

	url := os.Getenv("EMBEDDING_SERVICE_URL")
	if url == "" {
		url = "http://host.containers.internal:11434/api/embed"
	}
	model := os.Getenv("EMBEDDING_MODEL")
	if model == "" {
		model = "nomic-embed-text-v2-moe"
	}

	c := &HTTPClient{
		url:         url,
		model:       model,
		client:      &http.Client{Timeout: 10 * time.Second},
		logger:      logger,
		maxChars:    defaultMaxChars,
		maxAttempts: 4,
		baseDelay:   200 * time.Millisecond,
		maxDelay:    4 * time.Second,
		limiter:     rate.NewLimiter(rate.Limit(defaultEmbedRPS), defaultEmbedRPS),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Embed computes a vector for text, retrying transient failures with
// bounded exponential backoff. Input longer than the configured character
// budget is truncated before the call, per §6.
func (c *HTTPClient) Embed(ctx context.Context, text string) (types.Vector, error) {
	if len(text) > c.maxChars {
		text = text[:c.maxChars]
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("embedding: %w", ctxerr.Classify(ctx.Err(), ctxerr.Cancelled))
		}

		vec, retryAfter, err := c.doEmbed(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err

		if !ctxerr.IsRetryable(err) || attempt == c.maxAttempts {
			break
		}

		delay := c.backoff(attempt, retryAfter)
		c.logger.Warn("embedding call failed, retrying",
			"attempt", attempt, "max_attempts", c.maxAttempts, "delay", delay, "err", err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("embedding: %w", ctxerr.Classify(ctx.Err(), ctxerr.Cancelled))
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("embedding: %w: %w", ctxerr.EmbedFailed, lastErr)
}

// doEmbed performs one HTTP round trip. retryAfter is non-zero only when
// the service returned an explicit Retry-After hint.
func (c *HTTPClient) doEmbed(ctx context.Context, text string) (types.Vector, time.Duration, error) {
	body, err := json.Marshal(embedReq{Model: c.model, Input: text})
	if err != nil {
		return nil, 0, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("embed HTTP call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read embed response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, retryAfterDuration(resp.Header.Get("Retry-After")), fmt.Errorf("embed service rate limited: 429: %s", string(respBody))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("embed service returned %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed embedResp
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, 0, fmt.Errorf("parse embed response: %w", err)
	}
	if len(parsed.Embeddings) == 0 || len(parsed.Embeddings[0]) == 0 {
		return nil, 0, fmt.Errorf("embed service returned empty vector")
	}

	return types.Vector(parsed.Embeddings[0]), 0, nil
}

// backoff returns the delay before the next attempt: the explicit
// Retry-After hint when present, otherwise bounded exponential backoff
// with full jitter.
func (c *HTTPClient) backoff(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		if retryAfter > c.maxDelay {
			return c.maxDelay
		}
		return retryAfter
	}

	d := c.baseDelay << uint(attempt-1)
	if d > c.maxDelay || d <= 0 {
		d = c.maxDelay
	}
	return time.Duration(rand.Int63n(int64(d) + 1))
}

func retryAfterDuration(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}
