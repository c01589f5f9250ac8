// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides the Chat contract the surprise re-ranker (§4.7) and
// the affect reframer (§4.11) call into: a plain completion and a
// logprobs-bearing single-token completion.
package llm

import "context"

// TokenLogprob is one candidate next token with its natural-log probability,
// as returned by an OpenAI-compatible chat completion's top_logprobs field.
type TokenLogprob struct {
	Token   string
	Logprob float64
}

// LogprobsResult is the top-K next-token distribution for a single
// completion call, before normalization.
type LogprobsResult struct {
	TopLogprobs []TokenLogprob
}

// Chat is the minimal interface the pipeline needs from a chat completion
// provider. Implementations are expected to honor ctx cancellation and to
// return a plain error (classified by ctxerr at the call site) on failure.
type Chat interface {
	// Complete requests a normal text completion for the given system
	// prompt and user message. Used by the Stage 3 reframer.
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)

	// CompleteLogprobs requests exactly one output token and its top-K
	// log-probabilities. Used by the Stage 2 surprise re-ranker to build
	// baseline and conditioned next-token distributions.
	CompleteLogprobs(ctx context.Context, systemPrompt, userMessage string, topK int) (LogprobsResult, error)
}
