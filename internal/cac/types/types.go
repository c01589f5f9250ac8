// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package types holds the shared data model consumed across every Context
// Assembly Core stage: memories, the identity specification, pattern
// evidence, affect/forge results, and the optional trajectory summary.
package types

import "time"

// Pool partitions the memory corpus.
type Pool string

const (
	PoolUser Pool = "user"
	PoolAI   Pool = "ai"
)

// MemoryType is the closed set of memory kinds.
type MemoryType string

const (
	MemoryFact         MemoryType = "fact"
	MemoryValue        MemoryType = "value"
	MemoryReward       MemoryType = "reward"
	MemorySynthesis    MemoryType = "synthesis"
	MemoryPartnerModel MemoryType = "partner_model"
	MemorySelfModel    MemoryType = "self_model"
)

// MemoryClass is derived from MemoryType: patterns feed the Scout, facts don't.
type MemoryClass string

const (
	ClassFact    MemoryClass = "fact"
	ClassPattern MemoryClass = "pattern"
)

// ClassOf derives the MemoryClass for a MemoryType. partner_model and
// self_model are behavioral observations about a party, so they classify
// as patterns; everything else is a fact-shaped memory.
func ClassOf(t MemoryType) MemoryClass {
	switch t {
	case MemoryPartnerModel, MemorySelfModel:
		return ClassPattern
	default:
		return ClassFact
	}
}

// Domain is the closed set of seven life-areas a memory may belong to.
type Domain string

const (
	DomainWork         Domain = "work"
	DomainRelationship Domain = "relationship"
	DomainHealth       Domain = "health"
	DomainFinance      Domain = "finance"
	DomainCreative     Domain = "creative"
	DomainFamily       Domain = "family"
	DomainSelf         Domain = "self"
)

// AllDomains lists the closed domain set for iteration and validation.
var AllDomains = []Domain{DomainWork, DomainRelationship, DomainHealth, DomainFinance, DomainCreative, DomainFamily, DomainSelf}

// Emotion is the closed set of ten labeled emotions a memory may carry.
type Emotion string

const (
	EmotionJoy        Emotion = "joy"
	EmotionSadness    Emotion = "sadness"
	EmotionAnger      Emotion = "anger"
	EmotionFear       Emotion = "fear"
	EmotionShame      Emotion = "shame"
	EmotionPride      Emotion = "pride"
	EmotionRelief     Emotion = "relief"
	EmotionGrief      Emotion = "grief"
	EmotionHope       Emotion = "hope"
	EmotionFrustration Emotion = "frustration"
)

// Validation is the trust state of a memory.
type Validation string

const (
	ValidationValidated   Validation = "validated"
	ValidationUntested    Validation = "untested"
	ValidationInvalidated Validation = "invalidated"
)

// Durability describes how long a memory should remain influential.
type Durability string

const (
	DurabilityEphemeral  Durability = "ephemeral"
	DurabilityContextual Durability = "contextual"
	DurabilityDurable    Durability = "durable"
)

// Vector is a fixed-dimension embedding. Dimension is constant across the
// corpus or the vector is absent entirely (nil).
type Vector []float32

// Memory is a single retrievable unit of context about the user or the
// assistant's own reflections.
//
// Invariants: ID is unique within the corpus. Embedding dimension, when
// present, is constant across the corpus. Memories are immutable after
// creation except for Heat, Validation, AccessCount, and LastAccessed.
type Memory struct {
	ID            string
	Content       string
	Pool          Pool
	Type          MemoryType
	Domain        Domain // zero value means "no domain"
	Emotion       Emotion // zero value means "no emotion"
	Heat          float64
	Intensity     float64
	Validation    Validation
	Durability    Durability
	Embedding     Vector
	CreatedAt     time.Time
	UpdatedAt     time.Time
	AccessCount   int
	LastAccessed  time.Time

	// Similarity is populated by retrieval (Stage 1) and re-ranking (Stage 2);
	// it is not part of the persisted record.
	Similarity float64
	// SurpriseScore is populated by Stage 2 when KL re-ranking fires.
	SurpriseScore float64
	HasSurprise   bool
	// Score is the composite score computed by the selector (§4.9).
	Score float64
}

// Class derives this memory's MemoryClass from its Type.
func (m Memory) Class() MemoryClass {
	return ClassOf(m.Type)
}

// IdentitySpec is the operating specification: structured prose sections
// treated as immutable input to composition. Only replaced wholesale by an
// external onboarding/update flow — CAC never mutates it.
type IdentitySpec struct {
	Identity             string
	CognitiveArchitecture string
	Communication        string
	Execution            string
	Constraints          []string
	BalanceProtocol      string
	Appendix             string
}

// Polarity of a piece of pattern evidence.
type Polarity string

const (
	PolaritySupport    Polarity = "support"
	PolarityContradict Polarity = "contradict"
)

// Strength of a piece of pattern evidence.
type Strength string

const (
	StrengthWeak   Strength = "weak"
	StrengthNormal Strength = "normal"
	StrengthStrong Strength = "strong"
)

// PatternEvidence is a single append-only observation that a behavioral
// pattern fired (support) or was contradicted by the user's own words.
type PatternEvidence struct {
	ID          string
	PatternID   string
	Domain      Domain // zero value means "no domain"
	ObservedAt  time.Time
	Polarity    Polarity
	Strength    Strength
	SourceQuery string // truncated to <=100 bytes by the Scout before it is appended
}

// AffectShape is the three-axis emotional read of a message.
type AffectShape struct {
	Expansion  float64 // [-1, +1]
	Activation float64 // [-1, +1]
	Certainty  float64 // [-1, +1]
}

// AffectResult bundles the shape with its prescriptive complement and label.
type AffectResult struct {
	Shape          AffectShape
	ComplementText string
	Label          string
}

// Phase is the closed set of creative phases Forge can classify.
type Phase string

const (
	PhaseDiverging  Phase = "DIVERGING"
	PhaseIncubating Phase = "INCUBATING"
	PhaseConverging Phase = "CONVERGING"
	PhaseRefining   Phase = "REFINING"
	PhaseNeutral    Phase = "NEUTRAL"
)

// ForgeResult is the creative-phase classification over a sliding window.
type ForgeResult struct {
	Phase          Phase
	Openness       float64 // [0, 1]
	Materiality    float64 // [0, 1]
	ComplementText string
	FusionText     string // optional; set when an affect-phase rule matches
}

// Trajectory is an optional, externally-produced forward-looking summary.
type Trajectory struct {
	CompressedText string
	Arcs           []string
	Tensions       []string
	Drift          string
	MemoryCount    int
	GeneratedAt    time.Time
	IsActive       bool
}

// Goal is the categorical classification driving per-type scoring weights.
type Goal string

const (
	GoalEmotional  Goal = "emotional"
	GoalTechnical  Goal = "technical"
	GoalDecisional Goal = "decisional"
	GoalCreative   Goal = "creative"
	GoalStrategic  Goal = "strategic"
	GoalRelational Goal = "relational"
	GoalGeneral    Goal = "general"
)

// GoalOrder is the declared tie-break order for goal classification (§4.2,
// Design Notes Open Questions: ties are broken by declaration order).
var GoalOrder = []Goal{GoalEmotional, GoalTechnical, GoalDecisional, GoalCreative, GoalStrategic, GoalRelational, GoalGeneral}

// ConfidenceLevel is the Scout's calibrated output level for a pattern.
type ConfidenceLevel string

const (
	ConfidenceHigh    ConfidenceLevel = "HIGH"
	ConfidenceMedium  ConfidenceLevel = "MEDIUM"
	ConfidenceLow     ConfidenceLevel = "LOW"
	ConfidenceDormant ConfidenceLevel = "DORMANT"
)
