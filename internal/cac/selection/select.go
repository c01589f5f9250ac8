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
	"sort"

	"github.com/hearthai/cac/internal/cac/config"
	"github.com/hearthai/cac/internal/cac/types"
)

// Selector runs the two-pass diverse selection per pool (§4.10) on top of
// the composite scorer.
type Selector struct {
	scorer *Scorer
	cfg    config.SelectionConfig
}

// NewSelector builds a Selector from the registry's selection table.
func NewSelector(reg *config.Registry) *Selector {
	return &Selector{scorer: NewScorer(reg), cfg: reg.Scoring.Selection}
}

// Select scores every candidate against goal/heat, then runs the two-pass
// diverse selection independently per pool and returns the union. Input
// should already be deduplicated.
func (s *Selector) Select(candidates []types.Memory, goal types.Goal, heat float64, heatKnown bool) []types.Memory {
	scored := make([]types.Memory, len(candidates))
	copy(scored, candidates)
	for i := range scored {
		scored[i].Score = s.scorer.Score(scored[i], goal, heat, heatKnown)
	}

	var user, ai []types.Memory
	for _, mem := range scored {
		if mem.Pool == types.PoolUser {
			user = append(user, mem)
		} else {
			ai = append(ai, mem)
		}
	}

	limits := s.cfg
	result := selectPool(user, limits.UserCap, limits.MinScore)
	result = append(result, selectPool(ai, limits.AICap, limits.MinScore)...)
	return result
}

// selectPool implements the two-pass algorithm over one pool's candidates.
func selectPool(candidates []types.Memory, poolCap int, minScore float64) []types.Memory {
	var filtered []types.Memory
	for _, mem := range candidates {
		if mem.Score >= minScore {
			filtered = append(filtered, mem)
		}
	}

	// Deterministic total order: score desc, then id, so ties resolve the
	// same way on every run (§4.10: "Deterministic on any total order of
	// (score desc, id)").
	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].Score != filtered[j].Score {
			return filtered[i].Score > filtered[j].Score
		}
		return filtered[i].ID < filtered[j].ID
	})

	if poolCap <= 0 {
		return nil
	}

	selected := make([]types.Memory, 0, poolCap)
	seenTypes := make(map[types.MemoryType]bool)
	seenIDs := make(map[string]bool)

	// Pass 1: diversity. Each type is admitted once, first-come by score.
	for _, mem := range filtered {
		if len(selected) >= poolCap {
			break
		}
		if seenTypes[mem.Type] || seenIDs[mem.ID] {
			continue
		}
		selected = append(selected, mem)
		seenTypes[mem.Type] = true
		seenIDs[mem.ID] = true
	}

	// Pass 2: fill. Highest-scoring remaining candidates, regardless of type.
	if len(selected) < poolCap {
		for _, mem := range filtered {
			if len(selected) >= poolCap {
				break
			}
			if seenIDs[mem.ID] {
				continue
			}
			selected = append(selected, mem)
			seenIDs[mem.ID] = true
		}
	}

	return selected
}
