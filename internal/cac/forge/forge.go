// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package forge implements the creative-phase detector (§4.12): a sliding
// window of recent messages scored against lexical phase markers, plus
// optional affect-phase fusion lines.
//
// One Detector is scoped to a single conversation (§5: "The Forge buffer is
// per-conversation, not shared across conversations"). Callers hold one
// instance per conversation and pass forge_reset through Detect when the
// caller wants to start a new creative arc.
package forge

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hearthai/cac/internal/cac/config"
	"github.com/hearthai/cac/internal/cac/lexicon"
	"github.com/hearthai/cac/internal/cac/types"
)

type compiledPhase struct {
	phase       types.Phase
	openness    float64
	materiality float64
	markers     *lexicon.Set
}

type compiledFusion struct {
	phase           types.Phase
	expansionBelow  *float64
	activationBelow *float64
	certaintyBelow  *float64
	text            string
}

// Detector holds the compiled phase lexicon (shared, immutable) and one
// conversation's message buffer (mutable, guarded by mu).
type Detector struct {
	phases      []compiledPhase
	fusionRules []compiledFusion
	minScore    int
	bufferSize  int

	mu     sync.Mutex
	buffer []string
}

// New compiles the forge lexicon from the registry and returns a detector
// with an empty buffer.
func New(reg *config.Registry) (*Detector, error) {
	d := &Detector{minScore: reg.Forge.MinScore, bufferSize: reg.Forge.BufferSize}
	if d.bufferSize <= 0 {
		d.bufferSize = 8
	}

	// Stable order matters for tie-breaking; iterate the closed phase set
	// rather than the map's random order.
	order := []types.Phase{types.PhaseDiverging, types.PhaseIncubating, types.PhaseConverging, types.PhaseRefining}
	for _, phase := range order {
		def, ok := reg.Forge.Phases[string(phase)]
		if !ok {
			continue
		}
		markers, err := lexicon.Compile(def.Markers)
		if err != nil {
			return nil, fmt.Errorf("forge: compile phase %q markers: %w", phase, err)
		}
		d.phases = append(d.phases, compiledPhase{phase: phase, openness: def.Openness, materiality: def.Materiality, markers: markers})
	}

	for _, r := range reg.Forge.FusionRules {
		d.fusionRules = append(d.fusionRules, compiledFusion{
			phase:           types.Phase(r.Phase),
			expansionBelow:  r.ExpansionBelow,
			activationBelow: r.ActivationBelow,
			certaintyBelow:  r.CertaintyBelow,
			text:            r.Text,
		})
	}

	return d, nil
}

// Reset clears the conversation's message buffer immediately.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buffer = nil
}

// Detect appends text to the buffer (after an optional reset), scores the
// closed phase set against the whole window, and returns the winning
// phase plus an optional fusion line if the given affect shape matches a
// fusion rule for that phase.
func (d *Detector) Detect(text string, reset bool, affect *types.AffectShape) types.ForgeResult {
	d.mu.Lock()
	if reset {
		d.buffer = nil
	}
	d.buffer = append(d.buffer, text)
	if len(d.buffer) > d.bufferSize {
		d.buffer = d.buffer[len(d.buffer)-d.bufferSize:]
	}
	window := strings.Join(d.buffer, "\n")
	d.mu.Unlock()

	best, bestScore, secondScore := compiledPhase{}, -1, -1
	for _, p := range d.phases {
		score := p.markers.CountMatches(window)
		if score > bestScore {
			secondScore = bestScore
			bestScore = score
			best = p
		} else if score > secondScore {
			secondScore = score
		}
	}

	if bestScore < d.minScore {
		return types.ForgeResult{Phase: types.PhaseNeutral}
	}

	margin := bestScore - secondScore
	nudge := clampf(float64(margin)*0.02, 0, 0.1)

	result := types.ForgeResult{
		Phase:       best.phase,
		Openness:    clampf(best.openness+signedNudge(best.phase, nudge), 0, 1),
		Materiality: clampf(best.materiality+signedNudge(best.phase, -nudge), 0, 1),
	}

	if affect != nil {
		result.FusionText = d.fusionText(best.phase, *affect)
	}

	return result
}

// signedNudge pushes openness further toward its phase's natural direction
// as the winning margin grows: open phases get more open, material phases
// get more material.
func signedNudge(phase types.Phase, nudge float64) float64 {
	switch phase {
	case types.PhaseDiverging, types.PhaseIncubating:
		return nudge
	default:
		return -nudge
	}
}

func (d *Detector) fusionText(phase types.Phase, shape types.AffectShape) string {
	for _, r := range d.fusionRules {
		if r.phase != phase {
			continue
		}
		if r.expansionBelow != nil && shape.Expansion < *r.expansionBelow {
			return r.text
		}
		if r.activationBelow != nil && shape.Activation < *r.activationBelow {
			return r.text
		}
		if r.certaintyBelow != nil && shape.Certainty < *r.certaintyBelow {
			return r.text
		}
	}
	return ""
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
