// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package reframe implements the Stage 3 affect-driven reframer (§4.11): a
// single batched rewrite call over every selected memory, aligned by index,
// that preserves facts and never changes ordering or cardinality.
package reframe

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/hearthai/cac/internal/cac/types"
)

const systemPromptTemplate = `You rewrite short memory notes to match a person's current emotional state, without changing their meaning.

Rules:
- Preserve all facts. Do not add or speculate.
- Shift framing only, not meaning. 1-2 sentences per memory.
- If a memory does not benefit from reframing right now, return it unchanged.
- Current state: %s

Respond with exactly one rewritten line per input memory, in order, each prefixed "N: " matching the input number. Do not add commentary.`

// Reframer calls a chat completion endpoint to rewrite memory texts.
type Reframer struct {
	chat   Chat
	logger *slog.Logger
}

// Chat is the subset of llm.Chat the reframer needs; declared locally to
// avoid an import cycle with packages that construct llm.Chat from config
// this package doesn't need.
type Chat interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// New builds a Reframer.
func New(chat Chat, logger *slog.Logger) *Reframer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reframer{chat: chat, logger: logger}
}

// Reframe rewrites every memory's content in one batched call. On any
// error — transport failure, malformed response, or a line count mismatch —
// it falls back to returning memories unchanged, per §4.11's "on any error,
// fall back to the original texts."
func (r *Reframer) Reframe(ctx context.Context, memories []types.Memory, complementText string) []types.Memory {
	if len(memories) == 0 {
		return memories
	}

	out := make([]types.Memory, len(memories))
	copy(out, memories)

	userMessage := buildUserMessage(memories)
	systemPrompt := fmt.Sprintf(systemPromptTemplate, complementText)

	resp, err := r.chat.Complete(ctx, systemPrompt, userMessage)
	if err != nil {
		r.logger.Warn("reframe: completion call failed, returning originals", "err", err)
		return out
	}

	rewrites, ok := parseRewrites(resp, len(memories))
	if !ok {
		r.logger.Warn("reframe: could not align rewrites with input count, returning originals")
		return out
	}

	for i, text := range rewrites {
		if text != "" {
			out[i].Content = text
		}
	}
	return out
}

func buildUserMessage(memories []types.Memory) string {
	var b strings.Builder
	for i, mem := range memories {
		fmt.Fprintf(&b, "%d: %s\n", i+1, mem.Content)
	}
	return b.String()
}

// parseRewrites expects one "N: text" line per memory, in order. Any
// deviation from that shape — missing lines, out-of-range indices, wrong
// count — is treated as a parse failure so the caller falls back safely.
func parseRewrites(resp string, want int) ([]string, bool) {
	lines := strings.Split(strings.TrimSpace(resp), "\n")
	out := make([]string, want)
	found := make([]bool, want)

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		idx := strings.Index(line, ":")
		if idx <= 0 {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(line[:idx]))
		if err != nil || n < 1 || n > want {
			continue
		}
		out[n-1] = strings.TrimSpace(line[idx+1:])
		found[n-1] = true
	}

	for _, ok := range found {
		if !ok {
			return nil, false
		}
	}
	return out, true
}
