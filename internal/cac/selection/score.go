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
	"github.com/hearthai/cac/internal/cac/config"
	"github.com/hearthai/cac/internal/cac/types"
)

// Scorer computes the composite score (§4.9) from the embedded scoring
// tables.
type Scorer struct {
	cfg config.ScoringConfig
}

// NewScorer builds a Scorer from the registry's scoring table.
func NewScorer(reg *config.Registry) *Scorer {
	return &Scorer{cfg: reg.Scoring}
}

// Score computes `similarity · type_relevance[goal][type] ·
// validation_precision[validation] · intensity_factor(intensity)`, then
// applies the optional durability multiplier when heat is known (heatKnown
// lets callers distinguish "heat is exactly 0" from "heat was never
// computed").
func (s *Scorer) Score(mem types.Memory, goal types.Goal, heat float64, heatKnown bool) float64 {
	relevance := s.cfg.TypeRelevance[string(goal)][string(mem.Type)]
	precision := s.cfg.ValidationPrecision[string(mem.Validation)]
	intensityFactor := 0.5 + 0.5*mem.Intensity

	score := mem.Similarity * relevance * precision * intensityFactor

	if heatKnown {
		score *= s.durabilityMultiplier(mem.Durability, heat)
	}
	return score
}

func (s *Scorer) durabilityMultiplier(durability types.Durability, heat float64) float64 {
	b := s.cfg.DurabilityBoost
	switch {
	case heat >= b.HotThreshold && durability == types.DurabilityDurable:
		return b.HotDurableMultiplier
	case heat < b.CoolThreshold && (durability == types.DurabilityEphemeral || durability == types.DurabilityContextual):
		return b.CoolEphemeralContextualMultiplier
	case heat < b.CoolThreshold && durability == types.DurabilityDurable:
		return b.CoolDurableMultiplier
	default:
		return 1.0
	}
}
