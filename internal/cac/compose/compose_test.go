// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package compose

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hearthai/cac/internal/cac/scout"
	"github.com/hearthai/cac/internal/cac/types"
)

func minimalIdentity() types.IdentitySpec {
	return types.IdentitySpec{Identity: "You are Hearth, a companion model."}
}

func TestComposeAlwaysIncludesIdentityAndCompositionRules(t *testing.T) {
	out := Compose(Input{Identity: minimalIdentity()})
	require.Contains(t, out, "[HEARTH OPERATING SPECIFICATION]")
	require.Contains(t, out, "[END HEARTH OPERATING SPECIFICATION]")
	require.Contains(t, out, "[COMPOSITION RULES]")
	require.Contains(t, out, "[MEMORY STORAGE INSTRUCTION]")
}

func TestComposeOmitsEmptyAffectSection(t *testing.T) {
	out := Compose(Input{Identity: minimalIdentity()})
	require.NotContains(t, out, "[AFFECT COMPLEMENT]")
}

func TestComposeIncludesAffectWhenPresent(t *testing.T) {
	out := Compose(Input{
		Identity: minimalIdentity(),
		Affect:   &types.AffectResult{ComplementText: "Sit with the uncertainty a moment before responding."},
	})
	require.Contains(t, out, "[AFFECT COMPLEMENT]")
	require.Contains(t, out, "Sit with the uncertainty")
}

func TestComposeOmitsEmptyForgeSection(t *testing.T) {
	out := Compose(Input{Identity: minimalIdentity(), Forge: &types.ForgeResult{}})
	require.NotContains(t, out, "[FORGE COMPLEMENT]")
}

func TestComposeIncludesForgeFusionText(t *testing.T) {
	out := Compose(Input{
		Identity: minimalIdentity(),
		Forge:    &types.ForgeResult{FusionText: "lower stakes before pushing for volume"},
	})
	require.Contains(t, out, "[FORGE COMPLEMENT]")
	require.Contains(t, out, "lower stakes before pushing for volume")
}

func TestComposeOrdersMemoriesUserThenAI(t *testing.T) {
	out := Compose(Input{
		Identity:     minimalIdentity(),
		UserMemories: []types.Memory{{ID: "u1", Content: "likes hiking", Type: types.MemoryFact}},
		AIMemories:   []types.Memory{{ID: "a1", Content: "once suggested a retro", Type: types.MemorySynthesis}},
	})
	userIdx := strings.Index(out, "likes hiking")
	aiIdx := strings.Index(out, "once suggested a retro")
	require.NotEqual(t, -1, userIdx)
	require.NotEqual(t, -1, aiIdx)
	require.Less(t, userIdx, aiIdx)
}

func TestComposeOmitsEmptyMemoriesSection(t *testing.T) {
	out := Compose(Input{Identity: minimalIdentity()})
	require.NotContains(t, out, "[MEMORIES]")
}

func TestComposeMemoryLineIncludesSurpriseWhenPresent(t *testing.T) {
	out := Compose(Input{
		Identity: minimalIdentity(),
		UserMemories: []types.Memory{
			{ID: "u1", Content: "took the new job", Type: types.MemoryFact, HasSurprise: true, SurpriseScore: 0.042},
		},
	})
	require.Contains(t, out, "surprise=0.042")
}

func TestComposeIncludesScoutFindingsAndExcludesDormant(t *testing.T) {
	out := Compose(Input{
		Identity: minimalIdentity(),
		ScoutFindings: []scout.Finding{
			{Pattern: "decision_spiral", Level: types.ConfidenceHigh, Intervention: "name the decision", EvidenceCount: 4, Rationale: "strong recent support"},
		},
	})
	require.Contains(t, out, "[SCOUT ANALYSIS]")
	require.Contains(t, out, "[HIGH] decision_spiral")
	require.Contains(t, out, "name the decision")
	require.NotContains(t, out, "DORMANT")
}

func TestComposeOmitsScoutSectionWhenEmpty(t *testing.T) {
	out := Compose(Input{Identity: minimalIdentity()})
	require.NotContains(t, out, "[SCOUT ANALYSIS]")
}

func TestComposeIncludesActiveTrajectory(t *testing.T) {
	out := Compose(Input{
		Identity:   minimalIdentity(),
		Trajectory: &types.Trajectory{CompressedText: "Been circling the same job decision for weeks.", IsActive: true},
	})
	require.Contains(t, out, "[TRAJECTORY]")
	require.Contains(t, out, "circling the same job decision")
}

func TestComposeOmitsInactiveTrajectory(t *testing.T) {
	out := Compose(Input{
		Identity:   minimalIdentity(),
		Trajectory: &types.Trajectory{CompressedText: "stale", IsActive: false},
	})
	require.NotContains(t, out, "[TRAJECTORY]")
}

func TestComposeSectionOrderIsFixed(t *testing.T) {
	out := Compose(Input{
		Identity:      minimalIdentity(),
		Affect:        &types.AffectResult{ComplementText: "affect text"},
		Forge:         &types.ForgeResult{ComplementText: "forge text"},
		UserMemories:  []types.Memory{{ID: "u1", Content: "mem", Type: types.MemoryFact}},
		ScoutFindings: []scout.Finding{{Pattern: "p", Level: types.ConfidenceMedium, Rationale: "r"}},
		Trajectory:    &types.Trajectory{CompressedText: "traj", IsActive: true},
	})

	order := []string{
		"[HEARTH OPERATING SPECIFICATION]", "[COMPOSITION RULES]", "[AFFECT COMPLEMENT]",
		"[FORGE COMPLEMENT]", "[MEMORIES]", "[SCOUT ANALYSIS]", "[TRAJECTORY]", "[MEMORY STORAGE INSTRUCTION]",
	}
	last := -1
	for _, label := range order {
		idx := strings.Index(out, label)
		require.NotEqual(t, -1, idx, "missing section %s", label)
		require.Greater(t, idx, last, "section %s out of order", label)
		last = idx
	}
}

func TestComposeNeverLeavesEmptyDelimiterPairs(t *testing.T) {
	out := Compose(Input{Identity: minimalIdentity()})
	require.NotContains(t, out, "[AFFECT COMPLEMENT]\n[END AFFECT COMPLEMENT]")
	require.NotContains(t, out, "[FORGE COMPLEMENT]\n[END FORGE COMPLEMENT]")
	require.NotContains(t, out, "[MEMORIES]\n[END MEMORIES]")
	require.NotContains(t, out, "[SCOUT ANALYSIS]\n[END SCOUT ANALYSIS]")
	require.NotContains(t, out, "[TRAJECTORY]\n[END TRAJECTORY]")
}
