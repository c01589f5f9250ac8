// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hearthai/cac/internal/cac/config"
	"github.com/hearthai/cac/internal/cac/evidence"
	"github.com/hearthai/cac/internal/cac/types"
)

func loadTestRegistry(t *testing.T) *config.Registry {
	t.Helper()
	reg, err := config.Load()
	require.NoError(t, err)
	return reg
}

func TestAnalyzeEmitsSupportEvidenceOnMatch(t *testing.T) {
	reg := loadTestRegistry(t)
	store := evidence.NewMemoryStore(evidence.Config{})
	a, err := New(reg, store)
	require.NoError(t, err)

	selected := []types.Memory{
		{ID: "m1", Content: "I keep going back and forth on this decision.", Domain: types.DomainWork},
	}
	now := time.Now()
	_, err = a.Analyze(context.Background(), selected, "should i take the job?", now)
	require.NoError(t, err)

	history, err := store.Load(context.Background(), "decision_spiral")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, types.PolaritySupport, history[0].Polarity)
	require.Equal(t, types.DomainWork, history[0].Domain)
}

func TestAnalyzeEmitsContradictionEvidenceFromUserMessage(t *testing.T) {
	reg := loadTestRegistry(t)
	store := evidence.NewMemoryStore(evidence.Config{})
	a, err := New(reg, store)
	require.NoError(t, err)

	_, err = a.Analyze(context.Background(), nil, "I finally decided and went with option two.", time.Now())
	require.NoError(t, err)

	history, err := store.Load(context.Background(), "decision_spiral")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, types.PolarityContradict, history[0].Polarity)
}

func TestAnalyzeExcludesDormantPatterns(t *testing.T) {
	reg := loadTestRegistry(t)
	store := evidence.NewMemoryStore(evidence.Config{})
	a, err := New(reg, store)
	require.NoError(t, err)

	// A single recent weak support scores 0.10 + 0.075 recency = 0.175,
	// below LOW (0.20) -> DORMANT.
	require.NoError(t, store.Append(context.Background(), types.PatternEvidence{
		PatternID: "decision_spiral", ObservedAt: time.Now(), Polarity: types.PolaritySupport, Strength: types.StrengthWeak,
	}))

	findings, err := a.Analyze(context.Background(), nil, "", time.Now())
	require.NoError(t, err)
	for _, f := range findings {
		require.NotEqual(t, types.ConfidenceDormant, f.Level)
	}
}

func TestConfidenceTwoRecentSupportsIsLow(t *testing.T) {
	now := time.Now()
	history := []types.PatternEvidence{
		{PatternID: "p", ObservedAt: now, Polarity: types.PolaritySupport, Strength: types.StrengthNormal},
		{PatternID: "p", ObservedAt: now, Polarity: types.PolaritySupport, Strength: types.StrengthNormal},
	}
	level, score, _ := confidence(history, now)
	require.Equal(t, types.ConfidenceLow, level)
	require.Greater(t, score, 0.0)
}

func TestConfidenceMonotonicSupportNeverDecreasesScore(t *testing.T) {
	now := time.Now()
	base := []types.PatternEvidence{
		{PatternID: "p", ObservedAt: now, Polarity: types.PolaritySupport, Domain: types.DomainWork, Strength: types.StrengthNormal},
	}
	_, baseScore, _ := confidence(base, now)

	withMore := append(base, types.PatternEvidence{
		PatternID: "p", ObservedAt: now, Polarity: types.PolaritySupport, Domain: types.DomainHealth, Strength: types.StrengthNormal,
	})
	_, newScore, _ := confidence(withMore, now)

	require.GreaterOrEqual(t, newScore, baseScore)
}

func TestConfidenceMonotonicContradictionNeverIncreasesScore(t *testing.T) {
	now := time.Now()
	base := []types.PatternEvidence{
		{PatternID: "p", ObservedAt: now, Polarity: types.PolaritySupport, Domain: types.DomainWork, Strength: types.StrengthStrong},
		{PatternID: "p", ObservedAt: now, Polarity: types.PolaritySupport, Domain: types.DomainWork, Strength: types.StrengthStrong},
		{PatternID: "p", ObservedAt: now, Polarity: types.PolaritySupport, Domain: types.DomainWork, Strength: types.StrengthStrong},
		{PatternID: "p", ObservedAt: now, Polarity: types.PolaritySupport, Domain: types.DomainWork, Strength: types.StrengthStrong},
	}
	_, baseScore, _ := confidence(base, now)

	withContradiction := append(base, types.PatternEvidence{
		PatternID: "p", ObservedAt: now, Polarity: types.PolarityContradict, Strength: types.StrengthNormal,
	})
	_, newScore, _ := confidence(withContradiction, now)

	require.LessOrEqual(t, newScore, baseScore)
}

func TestConfidenceOldEvidenceOnlyIsAtMostMedium(t *testing.T) {
	now := time.Now()
	old := now.Add(-130 * 24 * time.Hour)

	var recentHistory, oldHistory []types.PatternEvidence
	for i := 0; i < 4; i++ {
		domain := types.AllDomains[i%3]
		recentHistory = append(recentHistory, types.PatternEvidence{
			PatternID: "p", ObservedAt: now, Polarity: types.PolaritySupport, Domain: domain, Strength: types.StrengthStrong,
		})
		oldHistory = append(oldHistory, types.PatternEvidence{
			PatternID: "p", ObservedAt: old, Polarity: types.PolaritySupport, Domain: domain, Strength: types.StrengthStrong,
		})
	}

	recentLevel, _, _ := confidence(recentHistory, now)
	require.Equal(t, types.ConfidenceHigh, recentLevel)

	oldLevel, _, _ := confidence(oldHistory, now)
	require.NotEqual(t, types.ConfidenceHigh, oldLevel)
}

func TestConfidenceContradictionCapsHighToMedium(t *testing.T) {
	now := time.Now()

	var history []types.PatternEvidence
	for i := 0; i < 4; i++ {
		history = append(history, types.PatternEvidence{
			PatternID: "p", ObservedAt: now, Polarity: types.PolaritySupport,
			Domain: types.AllDomains[i], Strength: types.StrengthNormal,
		})
	}
	history = append(history, types.PatternEvidence{
		PatternID: "p", ObservedAt: now, Polarity: types.PolarityContradict, Strength: types.StrengthStrong,
	})

	level, _, rationale := confidence(history, now)
	require.Equal(t, types.ConfidenceMedium, level)
	require.Contains(t, rationale, "capped")

	// Three recent strong supports turn off the cap (no longer fewer than
	// 3), lifting the pattern back to HIGH despite the contradiction.
	for i := 0; i < 3; i++ {
		history = append(history, types.PatternEvidence{
			PatternID: "p", ObservedAt: now, Polarity: types.PolaritySupport,
			Domain: types.AllDomains[i], Strength: types.StrengthStrong,
		})
	}
	level, _, _ = confidence(history, now)
	require.Equal(t, types.ConfidenceHigh, level)
}

func TestSelectTopCapsAtThreePatterns(t *testing.T) {
	findings := []Finding{
		{Pattern: "a", Score: 0.9}, {Pattern: "b", Score: 0.8},
		{Pattern: "c", Score: 0.7}, {Pattern: "d", Score: 0.6},
	}
	out := selectTop(findings, "", nil)
	require.Len(t, out, topN)
	require.Equal(t, "a", out[0].Pattern)
}
