// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scout implements the behavioral-pattern analyzer (§4.13): it
// matches selected memories and the current user message against a closed
// taxonomy of behavioral-verb patterns, emits support/contradiction
// evidence, and calibrates a time-decayed, contradiction-penalized
// confidence level per pattern.
package scout

import (
	"context"
	"sort"
	"time"

	"github.com/hearthai/cac/internal/cac/config"
	"github.com/hearthai/cac/internal/cac/evidence"
	"github.com/hearthai/cac/internal/cac/lexicon"
	"github.com/hearthai/cac/internal/cac/types"
)

const (
	recentWindow = 30 * 24 * time.Hour
	staleWindow  = 90 * 24 * time.Hour
	decayWindow  = 120 * 24 * time.Hour

	minScoreThreshold  = 0.70
	mediumThreshold    = 0.40
	lowThreshold       = 0.20
	minInstancesForLow = 2
	topN               = 3
)

// compiledPattern holds one taxonomy entry's ready-to-match regex sets.
type compiledPattern struct {
	name                 string
	intervention         string
	match                *lexicon.Set
	queryBridges         *lexicon.Set
	contradictionBridges *lexicon.Set
}

// Analyzer matches the pattern taxonomy against selected memories and
// calibrates confidence from an evidence.Store.
type Analyzer struct {
	store    evidence.Store
	patterns []compiledPattern
}

// New compiles the taxonomy tables once from the registry.
func New(reg *config.Registry, store evidence.Store) (*Analyzer, error) {
	patterns := make([]compiledPattern, 0, len(reg.Patterns.Patterns))
	for name, def := range reg.Patterns.Patterns {
		match, err := lexicon.Compile(def.Match)
		if err != nil {
			return nil, err
		}
		queryBridges, err := lexicon.Compile(def.QueryBridges)
		if err != nil {
			return nil, err
		}
		contradictionBridges, err := lexicon.Compile(def.ContradictionBridges)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, compiledPattern{
			name: name, intervention: def.Intervention,
			match: match, queryBridges: queryBridges, contradictionBridges: contradictionBridges,
		})
	}
	// Sorted for deterministic iteration regardless of map ordering.
	sort.Slice(patterns, func(i, j int) bool { return patterns[i].name < patterns[j].name })
	return &Analyzer{store: store, patterns: patterns}, nil
}

// Finding is one surfaced pattern's calibrated confidence, ready for the
// composer.
type Finding struct {
	Pattern      string
	Level        types.ConfidenceLevel
	Score        float64
	Intervention string
	Domains      []types.Domain
	EvidenceCount int
	Rationale    string
}

// Analyze runs the taxonomy over the selected memories and the user
// message, appends any newly observed evidence to the store, and returns
// the top surfaced findings (§4.13 steps 1-5).
func (a *Analyzer) Analyze(ctx context.Context, selected []types.Memory, userMessage string, now time.Time) ([]Finding, error) {
	var findings []Finding

	for _, p := range a.patterns {
		instances := matchInstances(p, selected)
		if len(instances) > 0 {
			ev := types.PatternEvidence{
				PatternID:   p.name,
				Domain:      mostCommonDomain(instances),
				ObservedAt:  now,
				Polarity:    types.PolaritySupport,
				Strength:    strengthFromCount(len(instances)),
				SourceQuery: truncate(userMessage, 100),
			}
			if err := a.store.Append(ctx, ev); err != nil {
				return nil, err
			}
		}

		if n := p.contradictionBridges.FindAllMatches(userMessage); n > 0 {
			ev := types.PatternEvidence{
				PatternID:   p.name,
				ObservedAt:  now,
				Polarity:    types.PolarityContradict,
				Strength:    strengthFromCount(n),
				SourceQuery: truncate(userMessage, 100),
			}
			if err := a.store.Append(ctx, ev); err != nil {
				return nil, err
			}
		}

		history, err := a.store.Load(ctx, p.name)
		if err != nil {
			return nil, err
		}
		if len(history) == 0 {
			continue
		}

		level, score, rationale := confidence(history, now)
		if level == types.ConfidenceDormant {
			continue
		}

		supportCount := countSupports(history)
		if level == types.ConfidenceLow && supportCount < minInstancesForLow {
			continue
		}

		findings = append(findings, Finding{
			Pattern:       p.name,
			Level:         level,
			Score:         score,
			Intervention:  p.intervention,
			Domains:       domainsOf(history),
			EvidenceCount: len(history),
			Rationale:     rationale,
		})
	}

	return selectTop(findings, userMessage, a.patterns), nil
}

func matchInstances(p compiledPattern, selected []types.Memory) []types.Memory {
	var out []types.Memory
	for _, mem := range selected {
		if p.match.MatchAny(mem.Content) {
			out = append(out, mem)
		}
	}
	return out
}

func strengthFromCount(n int) types.Strength {
	switch {
	case n >= 3:
		return types.StrengthStrong
	case n == 2:
		return types.StrengthNormal
	default:
		return types.StrengthWeak
	}
}

func mostCommonDomain(memories []types.Memory) types.Domain {
	counts := make(map[types.Domain]int)
	for _, m := range memories {
		if m.Domain != "" {
			counts[m.Domain]++
		}
	}
	var best types.Domain
	bestCount := 0
	for _, d := range types.AllDomains {
		if counts[d] > bestCount {
			best = d
			bestCount = counts[d]
		}
	}
	return best
}

func domainsOf(history []types.PatternEvidence) []types.Domain {
	seen := make(map[types.Domain]bool)
	for _, ev := range history {
		if ev.Polarity == types.PolaritySupport && ev.Domain != "" {
			seen[ev.Domain] = true
		}
	}
	var out []types.Domain
	for _, d := range types.AllDomains {
		if seen[d] {
			out = append(out, d)
		}
	}
	return out
}

func countSupports(history []types.PatternEvidence) int {
	n := 0
	for _, ev := range history {
		if ev.Polarity == types.PolaritySupport {
			n++
		}
	}
	return n
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// selectTop applies step 5: top-3 by score, among non-DORMANT findings that
// are query-relevant or the only available candidates.
func selectTop(findings []Finding, userMessage string, patterns []compiledPattern) []Finding {
	if len(findings) == 0 {
		return nil
	}

	byName := make(map[string]compiledPattern, len(patterns))
	for _, p := range patterns {
		byName[p.name] = p
	}

	var eligible []Finding
	if len(findings) == 1 {
		eligible = findings
	} else {
		for _, f := range findings {
			if byName[f.Pattern].queryBridges.MatchAny(userMessage) {
				eligible = append(eligible, f)
			}
		}
		if len(eligible) == 0 {
			eligible = findings
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].Score != eligible[j].Score {
			return eligible[i].Score > eligible[j].Score
		}
		return eligible[i].Pattern < eligible[j].Pattern
	})

	if len(eligible) > topN {
		eligible = eligible[:topN]
	}
	return eligible
}
