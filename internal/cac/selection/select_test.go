// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package selection

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hearthai/cac/internal/cac/types"
)

func TestSelectRespectsPerPoolCaps(t *testing.T) {
	reg := loadTestRegistry(t)
	sel := NewSelector(reg)

	var candidates []types.Memory
	for i := 0; i < 10; i++ {
		candidates = append(candidates, types.Memory{
			ID: string(rune('a' + i)), Pool: types.PoolUser, Type: types.MemoryFact,
			Validation: types.ValidationValidated, Similarity: 0.9, Intensity: 1.0,
		})
	}
	out := sel.Select(candidates, types.GoalTechnical, 0, false)
	require.LessOrEqual(t, len(out), reg.Scoring.Selection.UserCap)
}

func TestSelectFiltersBelowMinScore(t *testing.T) {
	sel := NewSelector(loadTestRegistry(t))

	candidates := []types.Memory{
		{ID: "weak", Pool: types.PoolUser, Type: types.MemoryFact, Validation: types.ValidationInvalidated, Similarity: 0.01, Intensity: 0},
	}
	out := sel.Select(candidates, types.GoalTechnical, 0, false)
	require.Empty(t, out)
}

func TestSelectDiversityPassPrefersUnseenTypes(t *testing.T) {
	reg := loadTestRegistry(t)
	sel := NewSelector(reg)

	candidates := []types.Memory{
		{ID: "fact-1", Pool: types.PoolUser, Type: types.MemoryFact, Validation: types.ValidationValidated, Similarity: 0.95, Intensity: 1},
		{ID: "fact-2", Pool: types.PoolUser, Type: types.MemoryFact, Validation: types.ValidationValidated, Similarity: 0.94, Intensity: 1},
		{ID: "value-1", Pool: types.PoolUser, Type: types.MemoryValue, Validation: types.ValidationValidated, Similarity: 0.5, Intensity: 1},
	}
	// UserCap in the embedded config is 3, so Select admits all three
	// candidates here; the preference shows at a tighter cap below.
	out := sel.Select(candidates, types.GoalTechnical, 0, false)
	require.LessOrEqual(t, len(out), reg.Scoring.Selection.UserCap)

	seenTypes := map[types.MemoryType]bool{}
	for _, m := range out {
		seenTypes[m.Type] = true
	}
	if len(out) >= 2 {
		require.True(t, seenTypes[types.MemoryFact])
	}

	// At cap 2 the diversity pass takes value-1 ahead of the higher-scoring
	// fact-2.
	tight := selectPool([]types.Memory{
		{ID: "fact-1", Type: types.MemoryFact, Score: 0.95},
		{ID: "fact-2", Type: types.MemoryFact, Score: 0.94},
		{ID: "value-1", Type: types.MemoryValue, Score: 0.15},
	}, 2, reg.Scoring.Selection.MinScore)
	require.Len(t, tight, 2)
	require.Equal(t, "fact-1", tight[0].ID)
	require.Equal(t, "value-1", tight[1].ID)
}

func TestSelectUnionsBothPools(t *testing.T) {
	candidates := []types.Memory{
		{ID: "u", Pool: types.PoolUser, Type: types.MemoryFact, Validation: types.ValidationValidated, Similarity: 0.9, Intensity: 1},
		{ID: "a", Pool: types.PoolAI, Type: types.MemoryFact, Validation: types.ValidationValidated, Similarity: 0.9, Intensity: 1},
	}
	reg := loadTestRegistry(t)
	sel := NewSelector(reg)
	out := sel.Select(candidates, types.GoalTechnical, 0, false)

	var hasUser, hasAI bool
	for _, m := range out {
		hasUser = hasUser || m.Pool == types.PoolUser
		hasAI = hasAI || m.Pool == types.PoolAI
	}
	require.True(t, hasUser)
	require.True(t, hasAI)
}

func TestSelectIsDeterministic(t *testing.T) {
	reg := loadTestRegistry(t)
	sel := NewSelector(reg)

	candidates := []types.Memory{
		{ID: "b", Pool: types.PoolUser, Type: types.MemoryFact, Validation: types.ValidationValidated, Similarity: 0.5, Intensity: 1},
		{ID: "a", Pool: types.PoolUser, Type: types.MemoryFact, Validation: types.ValidationValidated, Similarity: 0.5, Intensity: 1},
	}
	first := sel.Select(candidates, types.GoalTechnical, 0, false)
	second := sel.Select(candidates, types.GoalTechnical, 0, false)
	require.Equal(t, first, second)
}
