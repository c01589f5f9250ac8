// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package embedding provides the Embedder contract (§6) and an HTTP client
// implementation for a local Ollama-compatible embedding endpoint: JSON
// POST, bounded retries with exponential backoff, and character-budget
// truncation.
package embedding

import (
	"context"

	"github.com/hearthai/cac/internal/cac/types"
)

// Embedder turns text into a fixed-dimension vector. Implementations must
// be idempotent for identical input within a retry window and must never
// block past their configured timeout. A failure after retries is surfaced
// as ctxerr.EmbedFailed; callers treat that as fail-open (skip retrieval),
// per §6.
type Embedder interface {
	Embed(ctx context.Context, text string) (types.Vector, error)
}
