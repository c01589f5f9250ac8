// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package vectorstore defines the similarity search contract used by Stage 1
// (§4.3) and provides two implementations: an in-memory double for tests and
// single-process deployments, and a Weaviate-backed adapter for production.
package vectorstore

import (
	"context"
	"time"

	"github.com/hearthai/cac/internal/cac/types"
)

// SearchOptions narrows a similarity search, per §4.3's "search(embedding,
// {threshold, max, pool, cutoff}) → []Memory" contract.
type SearchOptions struct {
	Pool      types.Pool
	Threshold float64
	Max       int
	Cutoff    time.Time // zero value means no temporal filter
}

// VectorStore performs cosine similarity search over a single pool's
// memories. Implementations populate Memory.Similarity on every result.
type VectorStore interface {
	Search(ctx context.Context, embedding types.Vector, opts SearchOptions) ([]types.Memory, error)
	// Upsert indexes or re-indexes a memory's embedding. Used by synthesis
	// and pattern-evidence writers, not by the retrieval hot path.
	Upsert(ctx context.Context, mem types.Memory) error
}
