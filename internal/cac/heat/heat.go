// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package heat implements the two-path heat estimator (§4.1): a scalar in
// [0,1] derived either from an AffectShape or, as a fallback, from layered
// regex classification of the raw message text.
package heat

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/hearthai/cac/internal/cac/config"
	"github.com/hearthai/cac/internal/cac/lexicon"
	"github.com/hearthai/cac/internal/cac/types"
)

// band is a compiled heat.yaml band: a value plus the lexicon that selects it.
type band struct {
	name  string
	value float64
	set   *lexicon.Set
}

// Estimator computes heat deterministically from either an AffectShape or
// raw text. Safe for concurrent use after construction: all lexicons are
// compiled once in New and never mutated.
type Estimator struct {
	bands               []band
	intensifiers        *lexicon.Set
	intensifierIncr     float64
	intensifierMaxTotal float64
	capsWordIncr        float64
	capsWordMaxTotal    float64
	repeatedPunct       *lexicon.Set
	repeatedPunctIncr   float64
	repeatedPunctMax    float64
	coolMinLength       int
	coolValue           float64
	defaultValue        float64
}

// New compiles the heat lexicon from the registry. Called once at startup.
func New(reg *config.Registry) (*Estimator, error) {
	e := &Estimator{
		intensifierIncr:     reg.Heat.Boosters.IntensifierIncrement,
		intensifierMaxTotal: reg.Heat.Boosters.IntensifierMaxTotal,
		capsWordIncr:        reg.Heat.Boosters.CapsWordIncrement,
		capsWordMaxTotal:    reg.Heat.Boosters.CapsWordMaxTotal,
		repeatedPunctIncr:   reg.Heat.Boosters.RepeatedPunctuationIncrement,
		repeatedPunctMax:    reg.Heat.Boosters.RepeatedPunctuationMaxTotal,
		coolMinLength:       reg.Heat.CoolMinLength,
		coolValue:           reg.Heat.CoolValue,
		defaultValue:        reg.Heat.DefaultValue,
	}

	for _, b := range reg.Heat.Bands {
		set, err := lexicon.Compile(b.Patterns)
		if err != nil {
			return nil, fmt.Errorf("heat: compile band %q: %w", b.Name, err)
		}
		e.bands = append(e.bands, band{name: b.Name, value: b.Value, set: set})
	}

	intensifiers, err := lexicon.Compile(reg.Heat.Boosters.Intensifiers)
	if err != nil {
		return nil, fmt.Errorf("heat: compile intensifiers: %w", err)
	}
	e.intensifiers = intensifiers

	repeatedPunct, err := lexicon.Compile([]string{reg.Heat.Boosters.RepeatedPunctuationPattern})
	if err != nil {
		return nil, fmt.Errorf("heat: compile repeated punctuation: %w", err)
	}
	e.repeatedPunct = repeatedPunct

	return e, nil
}

// FromAffect computes heat from an already-detected affect shape (§4.1):
// heat = clamp(|activation| + 0.4*max(0,-expansion) + 0.2*max(0,-certainty), 0, 1).
func FromAffect(shape types.AffectShape) float64 {
	h := math.Abs(shape.Activation) + 0.4*math.Max(0, -shape.Expansion) + 0.2*math.Max(0, -shape.Certainty)
	return round2(clamp01(h))
}

// FromText is the fallback path: layered regex classification by
// precedence band, then bounded booster increments within that band.
func (e *Estimator) FromText(text string) float64 {
	base, _ := e.classifyBand(text)
	boosted := base + e.boosterIncrement(text)
	// Boosters never cross into the next band's base value: the result stays
	// below the smallest configured band value above base. Clamp to [0,1] too.
	ceiling := math.Inf(1)
	for _, v := range []float64{e.coolValue, e.defaultValue} {
		if v > base && v < ceiling {
			ceiling = v
		}
	}
	for _, b := range e.bands {
		if b.value > base && b.value < ceiling {
			ceiling = b.value
		}
	}
	if boosted >= ceiling {
		boosted = ceiling - 0.01
	}
	return round2(clamp01(boosted))
}

// classifyBand returns the band's base value and name, or the cool/default
// fallback when no band matches.
func (e *Estimator) classifyBand(text string) (float64, string) {
	for _, b := range e.bands {
		if b.set.MatchAny(text) {
			return b.value, b.name
		}
	}
	if len(strings.TrimSpace(text)) > e.coolMinLength {
		return e.coolValue, "cool"
	}
	return e.defaultValue, "default"
}

// boosterIncrement sums bounded increments from intensifier phrases,
// ALL-CAPS words, and repeated punctuation.
func (e *Estimator) boosterIncrement(text string) float64 {
	var total float64

	intensifierHits := e.intensifiers.CountMatches(text)
	total += math.Min(float64(intensifierHits)*e.intensifierIncr, e.intensifierMaxTotal)

	capsWords := countCapsWords(text)
	total += math.Min(float64(capsWords)*e.capsWordIncr, e.capsWordMaxTotal)

	punctHits := e.repeatedPunct.FindAllMatches(text)
	total += math.Min(float64(punctHits)*e.repeatedPunctIncr, e.repeatedPunctMax)

	return total
}

// countCapsWords counts whitespace-delimited tokens of length >= 2 that are
// entirely uppercase letters (shouting), ignoring pure-punctuation tokens.
func countCapsWords(text string) int {
	n := 0
	for _, word := range strings.Fields(text) {
		letters := 0
		allUpper := true
		for _, r := range word {
			if unicode.IsLetter(r) {
				letters++
				if !unicode.IsUpper(r) {
					allUpper = false
				}
			}
		}
		if letters >= 2 && allUpper {
			n++
		}
	}
	return n
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
