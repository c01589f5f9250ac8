// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hearthai/cac/internal/cac/config"
	"github.com/hearthai/cac/internal/cac/types"
	"github.com/hearthai/cac/internal/cac/vectorstore"
)

type fakeEmbedder struct {
	vec types.Vector
	err error
}

func (f fakeEmbedder) Embed(_ context.Context, _ string) (types.Vector, error) {
	return f.vec, f.err
}

func loadRegistry(t *testing.T) *config.Registry {
	t.Helper()
	reg, err := config.Load()
	require.NoError(t, err)
	return reg
}

func seedStore(t *testing.T, mems ...types.Memory) *vectorstore.MemoryStore {
	t.Helper()
	s := vectorstore.NewMemoryStore()
	for _, m := range mems {
		require.NoError(t, s.Upsert(context.Background(), m))
	}
	return s
}

func newTestOrchestrator(t *testing.T, store vectorstore.VectorStore, embedder fakeEmbedder) *Orchestrator {
	t.Helper()
	o, err := New(Dependencies{
		Registry: loadRegistry(t),
		Identity: types.IdentitySpec{Identity: "You are Hearth."},
		Embedder: embedder,
		Store:    store,
	})
	require.NoError(t, err)
	return o
}

func TestAssembleColdGreetingReturnsIdentityOnlyPrefix(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	o := newTestOrchestrator(t, store, fakeEmbedder{vec: types.Vector{1, 0}})

	result := o.Assemble(context.Background(), Request{UserMessage: "hey, how's it going?"}, time.Now())

	require.True(t, result.HasPrefix)
	require.Contains(t, result.Prefix, "[HEARTH OPERATING SPECIFICATION]")
	require.NotContains(t, result.Prefix, "[MEMORIES]")
	require.Empty(t, result.Diagnostics.Warnings)
}

func TestSetIdentitySwapsSubsequentAssembleCalls(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	o := newTestOrchestrator(t, store, fakeEmbedder{vec: types.Vector{1, 0}})

	before := o.Assemble(context.Background(), Request{UserMessage: "hey"}, time.Now())
	require.Contains(t, before.Prefix, "You are Hearth.")

	o.SetIdentity(types.IdentitySpec{Identity: "You are a different deployment's voice."})

	after := o.Assemble(context.Background(), Request{UserMessage: "hey"}, time.Now())
	require.NotContains(t, after.Prefix, "You are Hearth.")
	require.Contains(t, after.Prefix, "You are a different deployment's voice.")
}

func TestAssembleWarmReflectiveIncludesRetrievedMemories(t *testing.T) {
	now := time.Now()
	store := seedStore(t,
		types.Memory{
			ID: "u1", Pool: types.PoolUser, Type: types.MemoryFact, Domain: types.DomainWork,
			Content: "took a new job in March", Embedding: types.Vector{1, 0}, CreatedAt: now, Validation: types.ValidationValidated,
		},
	)
	o := newTestOrchestrator(t, store, fakeEmbedder{vec: types.Vector{1, 0}})

	result := o.Assemble(context.Background(), Request{UserMessage: "thinking about the new job again"}, now)

	require.True(t, result.HasPrefix)
	require.Contains(t, result.Prefix, "[MEMORIES]")
	require.Contains(t, result.Prefix, "took a new job in March")
	require.Greater(t, result.Diagnostics.Stage1Count, 0)
}

func TestAssembleEmbedFailureDegradesToNoMemoriesNotError(t *testing.T) {
	store := seedStore(t, types.Memory{
		ID: "u1", Pool: types.PoolUser, Embedding: types.Vector{1, 0}, CreatedAt: time.Now(),
	})
	o := newTestOrchestrator(t, store, fakeEmbedder{err: errors.New("embedding service down")})

	result := o.Assemble(context.Background(), Request{UserMessage: "hello"}, time.Now())

	require.True(t, result.HasPrefix)
	require.NotContains(t, result.Prefix, "[MEMORIES]")
	require.True(t, result.Diagnostics.EmbeddingFailed)
	require.NotEmpty(t, result.Diagnostics.Warnings)
}

func TestAssembleCancelledContextReturnsNoPrefix(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	o := newTestOrchestrator(t, store, fakeEmbedder{vec: types.Vector{1, 0}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := o.Assemble(ctx, Request{UserMessage: "hello"}, time.Now())
	require.False(t, result.HasPrefix)
	require.Empty(t, result.Prefix)
}

func TestAssembleZeroHeatOverrideDisablesRetrieval(t *testing.T) {
	now := time.Now()
	store := seedStore(t, types.Memory{
		ID: "u1", Pool: types.PoolUser, Embedding: types.Vector{1, 0}, CreatedAt: now,
	})
	o := newTestOrchestrator(t, store, fakeEmbedder{vec: types.Vector{1, 0}})

	// Expansion/Activation/Certainty all zero maps to heat 0 (§4.1's
	// formula), which the temporal gate always disables (§4.3: heat < 0.1).
	flatOverride := &types.AffectShape{}
	result := o.Assemble(context.Background(), Request{UserMessage: "hi", AffectOverride: flatOverride}, now)

	require.True(t, result.Diagnostics.TemporalDisabled)
	require.NotContains(t, result.Prefix, "[MEMORIES]")
	require.Zero(t, result.Diagnostics.Stage1Count)
}

func TestAssembleNeverPanicsWithoutStoreOrEmbedder(t *testing.T) {
	o, err := New(Dependencies{
		Registry: loadRegistry(t),
		Identity: types.IdentitySpec{Identity: "You are Hearth."},
	})
	require.NoError(t, err)

	require.NotPanics(t, func() {
		result := o.Assemble(context.Background(), Request{UserMessage: "anything"}, time.Now())
		require.True(t, result.HasPrefix)
	})
}

func TestInvalidateSurpriseCacheIsSafeWithoutChat(t *testing.T) {
	o := newTestOrchestrator(t, vectorstore.NewMemoryStore(), fakeEmbedder{vec: types.Vector{1, 0}})
	require.NotPanics(t, o.InvalidateSurpriseCache)
}

func TestDetectAffectAndDetectPhaseExposeUnderlyingDetectors(t *testing.T) {
	o := newTestOrchestrator(t, vectorstore.NewMemoryStore(), fakeEmbedder{vec: types.Vector{1, 0}})

	affectResult := o.DetectAffect("I'm so excited about this!")
	require.NotZero(t, affectResult.Shape)

	phaseResult := o.DetectPhase("throwing out a dozen wild ideas", false)
	require.NotEmpty(t, phaseResult.Phase)
}

type failingTrajectoryStore struct{}

func (failingTrajectoryStore) GetActive(context.Context, string) (*types.Trajectory, error) {
	return nil, errors.New("trajectory store unavailable")
}

func TestAssembleTrajectoryLookupFailureDegradesGracefully(t *testing.T) {
	o, err := New(Dependencies{
		Registry:     loadRegistry(t),
		Identity:     types.IdentitySpec{Identity: "You are Hearth."},
		Embedder:     fakeEmbedder{vec: types.Vector{1, 0}},
		Store:        vectorstore.NewMemoryStore(),
		Trajectories: failingTrajectoryStore{},
	})
	require.NoError(t, err)

	result := o.Assemble(context.Background(), Request{UserMessage: "hi", UserID: "u1"}, time.Now())
	require.True(t, result.HasPrefix)
	require.NotContains(t, result.Prefix, "[TRAJECTORY]")
	require.NotEmpty(t, result.Diagnostics.Warnings)
}
