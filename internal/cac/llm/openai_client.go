// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/hearthai/cac/internal/cac/ctxerr"
)

const defaultChatBaseURL = "https://api.openai.com/v1/chat/completions"

// defaultChatRPS bounds outbound chat completion calls. Stage 2's rerank
// fans out one logprobs call per candidate memory concurrently
// (internal/cac/surprise), so this client needs its own throttle rather
// than relying on the caller to pace requests.
const defaultChatRPS = 10

// OpenAIClient implements Chat against an OpenAI-compatible chat completions
// endpoint, trimmed to the two operations CAC needs and extended with the
// logprobs fields a plain chat client never requests.
type OpenAIClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
	limiter *rate.Limiter
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_completion_tokens,omitempty"`
	Logprobs    bool          `json:"logprobs,omitempty"`
	TopLogprobs int           `json:"top_logprobs,omitempty"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *chatError   `json:"error,omitempty"`
}

type chatChoice struct {
	Message chatMessage      `json:"message"`
	Logprobs *chatLogprobs   `json:"logprobs,omitempty"`
}

type chatLogprobs struct {
	Content []chatTokenLogprob `json:"content"`
}

type chatTokenLogprob struct {
	Token       string               `json:"token"`
	Logprob     float64              `json:"logprob"`
	TopLogprobs []chatTokenAltLogprob `json:"top_logprobs"`
}

type chatTokenAltLogprob struct {
	Token   string  `json:"token"`
	Logprob float64 `json:"logprob"`
}

type chatError struct {
	Message string `json:"message"`
}

// NewOpenAIClient builds a client from OPENAI_API_KEY and OPENAI_MODEL (or
// explicit overrides), an environment-driven constructor pattern.
func NewOpenAIClient(model string, logger *slog.Logger) (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("llm: OPENAI_API_KEY not set")
	}
	if model == "" {
		model = os.Getenv("OPENAI_MODEL")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultChatBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(defaultChatRPS), defaultChatRPS),
	}, nil
}

// Complete requests a normal single-turn completion.
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	resp, err := c.call(ctx, chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
		MaxTokens: 1024,
	})
	if err != nil {
		return "", fmt.Errorf("llm: complete: %w", ctxerr.Classify(err, ctxerr.RewriteFailed))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: complete: %w: empty choices", ctxerr.RewriteFailed)
	}
	return resp.Choices[0].Message.Content, nil
}

// CompleteLogprobs requests a single output token with its top-K
// log-probabilities.
func (c *OpenAIClient) CompleteLogprobs(ctx context.Context, systemPrompt, userMessage string, topK int) (LogprobsResult, error) {
	resp, err := c.call(ctx, chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
		MaxTokens:   1,
		Logprobs:    true,
		TopLogprobs: topK,
	})
	if err != nil {
		return LogprobsResult{}, fmt.Errorf("llm: logprobs: %w", ctxerr.Classify(err, ctxerr.LogprobsFailed))
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Logprobs == nil || len(resp.Choices[0].Logprobs.Content) == 0 {
		return LogprobsResult{}, fmt.Errorf("llm: logprobs: %w: no logprobs in response", ctxerr.LogprobsFailed)
	}

	top := resp.Choices[0].Logprobs.Content[0].TopLogprobs
	result := LogprobsResult{TopLogprobs: make([]TokenLogprob, 0, len(top))}
	for _, t := range top {
		result.TopLogprobs = append(result.TopLogprobs, TokenLogprob{Token: t.Token, Logprob: t.Logprob})
	}
	return result, nil
}

func (c *OpenAIClient) call(ctx context.Context, req chatRequest) (*chatResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("chat call rate limit wait: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat HTTP call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chat service returned %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("parse chat response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("chat service error: %s", parsed.Error.Message)
	}
	return &parsed, nil
}
