// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package vectorstore

import (
	"context"
	"sort"
	"sync"

	"github.com/hearthai/cac/internal/cac/types"
	"github.com/hearthai/cac/internal/cac/vecmath"
)

// MemoryStore is an in-process VectorStore backed by a map keyed by ID,
// searched by linear scan. It is the reference implementation for tests and for single-process
// deployments that do not run a Weaviate instance; it trades index
// scalability for zero operational surface.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]types.Memory
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]types.Memory)}
}

// Upsert inserts or replaces a memory by ID.
func (s *MemoryStore) Upsert(_ context.Context, mem types.Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[mem.ID] = mem
	return nil
}

// Search scores every memory in the requested pool by cosine similarity,
// applies the threshold and temporal cutoff, and returns the top Max
// results sorted by descending similarity.
func (s *MemoryStore) Search(_ context.Context, embedding types.Vector, opts SearchOptions) ([]types.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []types.Memory
	for _, mem := range s.items {
		if mem.Pool != opts.Pool {
			continue
		}
		if !opts.Cutoff.IsZero() && mem.CreatedAt.Before(opts.Cutoff) {
			continue
		}
		sim := vecmath.Cosine(embedding, mem.Embedding)
		if sim < opts.Threshold {
			continue
		}
		mem.Similarity = sim
		candidates = append(candidates, mem)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})

	max := opts.Max
	if max <= 0 || max > len(candidates) {
		max = len(candidates)
	}
	return candidates[:max], nil
}
