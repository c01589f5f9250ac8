// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the data-driven scoring and lexicon tables that
// drive heat estimation, affect/goal/forge classification, composite
// scoring, and the Scout's pattern taxonomy. Tables are embedded at build
// time and parsed once into an immutable Registry (Design Notes §9:
// "Regex lexicons: data-driven tables. Compile once; never rebuild
// per-message. Keep them in a single registry.").
package config

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed scoring.yaml
var scoringYAML []byte

//go:embed heat.yaml
var heatYAML []byte

//go:embed affect.yaml
var affectYAML []byte

//go:embed goal.yaml
var goalYAML []byte

//go:embed forge.yaml
var forgeYAML []byte

//go:embed patterns.yaml
var patternsYAML []byte

// ScoringConfig is the composite-scorer and selector table set (§4.9, §4.10).
type ScoringConfig struct {
	TypeRelevance        map[string]map[string]float64 `yaml:"type_relevance"`
	ValidationPrecision  map[string]float64             `yaml:"validation_precision"`
	DurabilityBoost      DurabilityBoostConfig          `yaml:"durability_boost"`
	Selection            SelectionConfig                `yaml:"selection"`
	Retrieval            RetrievalConfig                `yaml:"retrieval"`
	Surprise             SurpriseConfig                 `yaml:"surprise"`
	Evidence             EvidenceConfig                 `yaml:"evidence"`
}

type DurabilityBoostConfig struct {
	HotThreshold                     float64 `yaml:"hot_threshold"`
	CoolThreshold                    float64 `yaml:"cool_threshold"`
	HotDurableMultiplier             float64 `yaml:"hot_durable_multiplier"`
	CoolEphemeralContextualMultiplier float64 `yaml:"cool_ephemeral_contextual_multiplier"`
	CoolDurableMultiplier            float64 `yaml:"cool_durable_multiplier"`
}

type SelectionConfig struct {
	MinScore float64 `yaml:"min_score"`
	UserCap  int     `yaml:"user_cap"`
	AICap    int     `yaml:"ai_cap"`
}

type RetrievalConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	MaxCandidates       int     `yaml:"max_candidates"`
}

type SurpriseConfig struct {
	TopCandidatesIn  int     `yaml:"top_candidates_in"`
	TopCandidatesOut int     `yaml:"top_candidates_out"`
	TopLogprobsK     int     `yaml:"top_logprobs_k"`
	Epsilon          float64 `yaml:"epsilon"`
}

type EvidenceConfig struct {
	MaxPerPattern int `yaml:"max_per_pattern"`
	MaxAgeDays    int `yaml:"max_age_days"`
}

// HeatConfig is the heat estimator's text-classification lexicon (§4.1).
type HeatConfig struct {
	Bands           []HeatBand    `yaml:"bands"`
	Boosters        HeatBoosters  `yaml:"boosters"`
	CoolMinLength   int           `yaml:"cool_min_length"`
	CoolValue       float64       `yaml:"cool_value"`
	DefaultValue    float64       `yaml:"default_value"`
}

type HeatBand struct {
	Name     string   `yaml:"name"`
	Value    float64  `yaml:"value"`
	Patterns []string `yaml:"patterns"`
}

type HeatBoosters struct {
	IntensifierIncrement         float64  `yaml:"intensifier_increment"`
	IntensifierMaxTotal          float64  `yaml:"intensifier_max_total"`
	Intensifiers                 []string `yaml:"intensifiers"`
	CapsWordIncrement            float64  `yaml:"caps_word_increment"`
	CapsWordMaxTotal             float64  `yaml:"caps_word_max_total"`
	RepeatedPunctuationIncrement float64  `yaml:"repeated_punctuation_increment"`
	RepeatedPunctuationMaxTotal  float64  `yaml:"repeated_punctuation_max_total"`
	RepeatedPunctuationPattern   string   `yaml:"repeated_punctuation_pattern"`
}

// AffectConfig is the affect detector's lexicon and label rules (§4.12).
type AffectConfig struct {
	Axes   map[string]AffectAxis `yaml:"axes"`
	Labels []AffectLabelRule     `yaml:"labels"`
}

type AffectAxis struct {
	Weight float64  `yaml:"weight"`
	Up     []string `yaml:"up"`
	Down   []string `yaml:"down"`
}

type AffectLabelRule struct {
	Name            string   `yaml:"name"`
	Complement      string   `yaml:"complement"`
	ExpansionBelow  *float64 `yaml:"expansion_below"`
	ExpansionAbove  *float64 `yaml:"expansion_above"`
	ActivationBelow *float64 `yaml:"activation_below"`
	ActivationAbove *float64 `yaml:"activation_above"`
	CertaintyBelow  *float64 `yaml:"certainty_below"`
	CertaintyAbove  *float64 `yaml:"certainty_above"`
}

// GoalConfig is the goal classifier's per-category lexicon (§4.2).
type GoalConfig struct {
	Categories map[string][]string `yaml:"categories"`
}

// ForgeConfig is the phase detector's lexicon and fusion rules (§4.12).
type ForgeConfig struct {
	Phases      map[string]ForgePhase `yaml:"phases"`
	MinScore    int                   `yaml:"min_score"`
	BufferSize  int                   `yaml:"buffer_size"`
	FusionRules []FusionRule          `yaml:"fusion_rules"`
}

type ForgePhase struct {
	Openness    float64  `yaml:"openness"`
	Materiality float64  `yaml:"materiality"`
	Markers     []string `yaml:"markers"`
}

type FusionRule struct {
	Phase           string   `yaml:"phase"`
	ExpansionBelow  *float64 `yaml:"expansion_below"`
	ActivationBelow *float64 `yaml:"activation_below"`
	CertaintyBelow  *float64 `yaml:"certainty_below"`
	Text            string   `yaml:"text"`
}

// PatternsConfig is the Scout's behavioral-verb taxonomy (§4.13).
type PatternsConfig struct {
	Patterns map[string]PatternDef `yaml:"patterns"`
}

type PatternDef struct {
	Intervention          string   `yaml:"intervention"`
	Match                 []string `yaml:"match"`
	QueryBridges          []string `yaml:"query_bridges"`
	ContradictionBridges  []string `yaml:"contradiction_bridges"`
}

// Registry bundles every parsed table. It is immutable after Load and safe
// for concurrent use without synchronization.
type Registry struct {
	Scoring  ScoringConfig
	Heat     HeatConfig
	Affect   AffectConfig
	Goal     GoalConfig
	Forge    ForgeConfig
	Patterns PatternsConfig
}

// Load parses the embedded tables into a Registry. Called once at process
// start; the result is passed explicitly through the call graph rather than
// held in a package-level global (Design Notes §9).
func Load() (*Registry, error) {
	r := &Registry{}
	if err := yaml.Unmarshal(scoringYAML, &r.Scoring); err != nil {
		return nil, fmt.Errorf("config: parse scoring.yaml: %w", err)
	}
	if err := yaml.Unmarshal(heatYAML, &r.Heat); err != nil {
		return nil, fmt.Errorf("config: parse heat.yaml: %w", err)
	}
	if err := yaml.Unmarshal(affectYAML, &r.Affect); err != nil {
		return nil, fmt.Errorf("config: parse affect.yaml: %w", err)
	}
	if err := yaml.Unmarshal(goalYAML, &r.Goal); err != nil {
		return nil, fmt.Errorf("config: parse goal.yaml: %w", err)
	}
	if err := yaml.Unmarshal(forgeYAML, &r.Forge); err != nil {
		return nil, fmt.Errorf("config: parse forge.yaml: %w", err)
	}
	if err := yaml.Unmarshal(patternsYAML, &r.Patterns); err != nil {
		return nil, fmt.Errorf("config: parse patterns.yaml: %w", err)
	}
	return r, nil
}
