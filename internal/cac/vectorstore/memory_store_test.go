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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hearthai/cac/internal/cac/types"
)

func mustUpsert(t *testing.T, s *MemoryStore, mem types.Memory) {
	t.Helper()
	require.NoError(t, s.Upsert(context.Background(), mem))
}

func TestSearchFiltersByPool(t *testing.T) {
	s := NewMemoryStore()
	mustUpsert(t, s, types.Memory{ID: "u1", Pool: types.PoolUser, Embedding: types.Vector{1, 0}, CreatedAt: time.Now()})
	mustUpsert(t, s, types.Memory{ID: "a1", Pool: types.PoolAI, Embedding: types.Vector{1, 0}, CreatedAt: time.Now()})

	res, err := s.Search(context.Background(), types.Vector{1, 0}, SearchOptions{Pool: types.PoolUser, Threshold: -1, Max: 10})
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Equal(t, "u1", res[0].ID)
}

func TestSearchAppliesThreshold(t *testing.T) {
	s := NewMemoryStore()
	mustUpsert(t, s, types.Memory{ID: "close", Pool: types.PoolUser, Embedding: types.Vector{1, 0}, CreatedAt: time.Now()})
	mustUpsert(t, s, types.Memory{ID: "far", Pool: types.PoolUser, Embedding: types.Vector{0, 1}, CreatedAt: time.Now()})

	res, err := s.Search(context.Background(), types.Vector{1, 0}, SearchOptions{Pool: types.PoolUser, Threshold: 0.5, Max: 10})
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Equal(t, "close", res[0].ID)
}

func TestSearchAppliesCutoff(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	mustUpsert(t, s, types.Memory{ID: "old", Pool: types.PoolUser, Embedding: types.Vector{1, 0}, CreatedAt: now.Add(-48 * time.Hour)})
	mustUpsert(t, s, types.Memory{ID: "new", Pool: types.PoolUser, Embedding: types.Vector{1, 0}, CreatedAt: now})

	res, err := s.Search(context.Background(), types.Vector{1, 0}, SearchOptions{Pool: types.PoolUser, Threshold: -1, Max: 10, Cutoff: now.Add(-24 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Equal(t, "new", res[0].ID)
}

func TestSearchSortedBySimilarityDescending(t *testing.T) {
	s := NewMemoryStore()
	mustUpsert(t, s, types.Memory{ID: "mid", Pool: types.PoolUser, Embedding: types.Vector{1, 1}, CreatedAt: time.Now()})
	mustUpsert(t, s, types.Memory{ID: "best", Pool: types.PoolUser, Embedding: types.Vector{1, 0}, CreatedAt: time.Now()})

	res, err := s.Search(context.Background(), types.Vector{1, 0}, SearchOptions{Pool: types.PoolUser, Threshold: -1, Max: 10})
	require.NoError(t, err)
	require.Len(t, res, 2)
	require.Equal(t, "best", res[0].ID)
	require.GreaterOrEqual(t, res[0].Similarity, res[1].Similarity)
}

func TestSearchRespectsMax(t *testing.T) {
	s := NewMemoryStore()
	for i := 0; i < 5; i++ {
		mustUpsert(t, s, types.Memory{ID: string(rune('a' + i)), Pool: types.PoolUser, Embedding: types.Vector{1, 0}, CreatedAt: time.Now()})
	}
	res, err := s.Search(context.Background(), types.Vector{1, 0}, SearchOptions{Pool: types.PoolUser, Threshold: -1, Max: 2})
	require.NoError(t, err)
	require.Len(t, res, 2)
}

func TestUpsertOverwritesByID(t *testing.T) {
	s := NewMemoryStore()
	mustUpsert(t, s, types.Memory{ID: "x", Content: "first", Pool: types.PoolUser, Embedding: types.Vector{1, 0}, CreatedAt: time.Now()})
	mustUpsert(t, s, types.Memory{ID: "x", Content: "second", Pool: types.PoolUser, Embedding: types.Vector{1, 0}, CreatedAt: time.Now()})

	res, err := s.Search(context.Background(), types.Vector{1, 0}, SearchOptions{Pool: types.PoolUser, Threshold: -1, Max: 10})
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Equal(t, "second", res[0].Content)
}
