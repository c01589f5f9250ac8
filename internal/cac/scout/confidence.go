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
	"fmt"
	"time"

	"github.com/hearthai/cac/internal/cac/types"
)

type ageBucket int

const (
	bucketRecent ageBucket = iota
	bucketStale
	bucketOld
)

func bucketOf(ev types.PatternEvidence, now time.Time) ageBucket {
	age := now.Sub(ev.ObservedAt)
	switch {
	case age < recentWindow:
		return bucketRecent
	case age < staleWindow:
		return bucketStale
	default:
		return bucketOld
	}
}

func ageWeight(b ageBucket) float64 {
	switch b {
	case bucketRecent:
		return 1.0
	case bucketStale:
		return 0.5
	default:
		return 0.25
	}
}

func contradictionAgeMultiplier(b ageBucket) float64 {
	switch b {
	case bucketRecent:
		return 1.2
	case bucketStale:
		return 0.8
	default:
		return 0.5
	}
}

func contradictionStrengthMultiplier(s types.Strength) float64 {
	switch s {
	case types.StrengthWeak:
		return 1.5
	case types.StrengthNormal:
		return 1.75
	case types.StrengthStrong:
		return 2.0
	default:
		return 1.5
	}
}

// confidence computes a pattern's calibrated level, score, and a short
// human-readable rationale from its full evidence history (§4.13 step 4).
func confidence(history []types.PatternEvidence, now time.Time) (types.ConfidenceLevel, float64, string) {
	var weightedSupport float64
	domains := make(map[types.Domain]bool)
	recentSupports := 0
	recentStrongContradiction := false
	recentStrongSupports := 0
	var lastSupport time.Time
	hasSupport := false

	for _, ev := range history {
		b := bucketOf(ev, now)
		if ev.Polarity == types.PolaritySupport {
			weightedSupport += ageWeight(b)
			if ev.Domain != "" {
				domains[ev.Domain] = true
			}
			if b == bucketRecent {
				recentSupports++
				if ev.Strength == types.StrengthStrong {
					recentStrongSupports++
				}
			}
			if !hasSupport || ev.ObservedAt.After(lastSupport) {
				lastSupport = ev.ObservedAt
				hasSupport = true
			}
		}
	}

	supportScore := baseScore(weightedSupport)

	switch len(domains) {
	case 0, 1:
	case 2:
		supportScore += 0.15
	default:
		supportScore += 0.25
	}

	switch {
	case recentSupports >= 2:
		supportScore += 0.15
	case recentSupports == 1:
		supportScore += 0.075
	}

	var penalty float64
	for _, ev := range history {
		if ev.Polarity != types.PolarityContradict {
			continue
		}
		b := bucketOf(ev, now)
		if b == bucketRecent && ev.Strength == types.StrengthStrong {
			recentStrongContradiction = true
		}
		penalty += 0.15 * contradictionStrengthMultiplier(ev.Strength) * contradictionAgeMultiplier(b)
	}
	score := supportScore - penalty
	if score < 0 {
		score = 0
	}

	// Level is derived from the support-only score, not the post-penalty
	// score: a single strong recent contradiction's penalty is large enough
	// (>=0.27) to push any HIGH support score below the post-penalty MEDIUM
	// floor on its own, which would make the decay and cap rules below
	// unreachable and contradict their own worked example (a capped pattern
	// returns to HIGH once enough strong supports accumulate, which only
	// holds if level tracks the support score rather than the
	// penalty-reduced one). The penalty still reduces the returned
	// numeric score, which exists for ranking and reporting.
	supportLevel := levelOf(supportScore)
	level := supportLevel

	decayed := false
	if supportLevel == types.ConfidenceHigh && hasSupport && now.Sub(lastSupport) >= decayWindow && recentSupports == 0 {
		level = types.ConfidenceMedium
		decayed = true
	}

	capped := false
	if supportLevel == types.ConfidenceHigh && recentStrongContradiction && recentStrongSupports < 3 {
		level = types.ConfidenceMedium
		capped = true
	}

	rationale := fmt.Sprintf("weighted support %.2f, %d domain(s), %d recent support(s), penalty %.2f",
		weightedSupport, len(domains), recentSupports, penalty)
	if decayed {
		rationale += "; decayed from HIGH (no recent support in 120+ days)"
	}
	if capped {
		rationale += "; capped from HIGH (recent strong contradiction, <3 recent strong supports)"
	}

	return level, score, rationale
}

func baseScore(weightedSupport float64) float64 {
	switch {
	case weightedSupport >= 4:
		return 0.40
	case weightedSupport >= 3:
		return 0.30
	case weightedSupport >= 2:
		return 0.20
	case weightedSupport >= 1:
		return 0.10
	default:
		return 0
	}
}

func levelOf(score float64) types.ConfidenceLevel {
	switch {
	case score >= minScoreThreshold:
		return types.ConfidenceHigh
	case score >= mediumThreshold:
		return types.ConfidenceMedium
	case score >= lowThreshold:
		return types.ConfidenceLow
	default:
		return types.ConfidenceDormant
	}
}
