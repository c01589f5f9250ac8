// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package affect implements the affect detector (§4.12): a pure function of
// message text that produces a three-axis AffectShape plus a prescriptive
// complement and label.
package affect

import (
	"fmt"
	"math"

	"github.com/hearthai/cac/internal/cac/config"
	"github.com/hearthai/cac/internal/cac/lexicon"
	"github.com/hearthai/cac/internal/cac/types"
)

type axis struct {
	weight float64
	up     *lexicon.Set
	down   *lexicon.Set
}

// Detector computes AffectShape + complement text from raw message text.
type Detector struct {
	axes   map[string]axis
	labels []config.AffectLabelRule
}

// New compiles the affect lexicon from the registry.
func New(reg *config.Registry) (*Detector, error) {
	axes := make(map[string]axis, len(reg.Affect.Axes))
	for name, a := range reg.Affect.Axes {
		up, err := lexicon.Compile(a.Up)
		if err != nil {
			return nil, fmt.Errorf("affect: compile %s.up: %w", name, err)
		}
		down, err := lexicon.Compile(a.Down)
		if err != nil {
			return nil, fmt.Errorf("affect: compile %s.down: %w", name, err)
		}
		axes[name] = axis{weight: a.Weight, up: up, down: down}
	}
	return &Detector{axes: axes, labels: reg.Affect.Labels}, nil
}

// Detect is a pure function of text (§4.12: "Both detectors are pure
// functions of their inputs except Forge's internal buffer").
func (d *Detector) Detect(text string) types.AffectResult {
	shape := types.AffectShape{
		Expansion:  d.axisValue("expansion", text),
		Activation: d.axisValue("activation", text),
		Certainty:  d.axisValue("certainty", text),
	}

	for _, rule := range d.labels {
		if ruleMatches(rule, shape) {
			return types.AffectResult{Shape: shape, ComplementText: rule.Complement, Label: rule.Name}
		}
	}
	return types.AffectResult{Shape: shape, Label: "grounded"}
}

func (d *Detector) axisValue(name string, text string) float64 {
	a, ok := d.axes[name]
	if !ok {
		return 0
	}
	upHits := a.up.CountMatches(text)
	downHits := a.down.CountMatches(text)
	v := a.weight*float64(upHits) - a.weight*float64(downHits)
	return clamp(v, -1, 1)
}

func ruleMatches(rule config.AffectLabelRule, shape types.AffectShape) bool {
	if rule.ExpansionBelow != nil && !(shape.Expansion < *rule.ExpansionBelow) {
		return false
	}
	if rule.ExpansionAbove != nil && !(shape.Expansion > *rule.ExpansionAbove) {
		return false
	}
	if rule.ActivationBelow != nil && !(shape.Activation < *rule.ActivationBelow) {
		return false
	}
	if rule.ActivationAbove != nil && !(shape.Activation > *rule.ActivationAbove) {
		return false
	}
	if rule.CertaintyBelow != nil && !(shape.Certainty < *rule.CertaintyBelow) {
		return false
	}
	if rule.CertaintyAbove != nil && !(shape.Certainty > *rule.CertaintyAbove) {
		return false
	}
	// A rule with no conditions at all is a catch-all (e.g. "grounded").
	return true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// NeedsReframe reports whether the shape crosses the Stage 3 trigger
// thresholds (§4.11): expansion < -0.3, activation < 0.3, or certainty < 0.3.
func NeedsReframe(shape types.AffectShape) bool {
	return shape.Expansion < -0.3 || shape.Activation < 0.3 || shape.Certainty < 0.3
}
