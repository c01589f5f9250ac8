// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package goal implements the goal classifier (§4.2): a categorical label
// over a fixed set of seven goals, used only to select a per-type-weight
// row for composite scoring.
package goal

import (
	"fmt"

	"github.com/hearthai/cac/internal/cac/config"
	"github.com/hearthai/cac/internal/cac/lexicon"
	"github.com/hearthai/cac/internal/cac/types"
)

// Classifier counts pattern matches per category; the highest count wins,
// ties broken by types.GoalOrder's declared order.
type Classifier struct {
	sets map[types.Goal]*lexicon.Set
}

// New compiles the goal lexicon from the registry.
func New(reg *config.Registry) (*Classifier, error) {
	sets := make(map[types.Goal]*lexicon.Set, len(reg.Goal.Categories))
	for name, patterns := range reg.Goal.Categories {
		set, err := lexicon.Compile(patterns)
		if err != nil {
			return nil, fmt.Errorf("goal: compile category %q: %w", name, err)
		}
		sets[types.Goal(name)] = set
	}
	return &Classifier{sets: sets}, nil
}

// Classify returns the winning goal for the given message text.
func (c *Classifier) Classify(text string) types.Goal {
	best := types.GoalGeneral
	bestCount := 0
	for _, g := range types.GoalOrder {
		if g == types.GoalGeneral {
			continue
		}
		set := c.sets[g]
		count := set.CountMatches(text)
		if count > bestCount {
			bestCount = count
			best = g
		}
	}
	return best
}
