// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package orchestrator runs the Context Assembly Core pipeline end to end
// (§4.15): heat, goal, and the temporal gate; embedding and parallel
// vector search; domain dominance and the optional surprise re-rank;
// dedup, score, and diverse selection; the optional affect-driven
// reframe; affect and Forge detection; the Scout; and finally the
// composer. Every stage is guarded — a stage failure logs a warning and
// the pipeline continues with the best partial result it has, per the
// fail-open contract. The orchestrator never panics or returns an error
// to its caller; a nil prefix means "send the user's message unmodified."
package orchestrator

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/hearthai/cac/internal/cac/affect"
	"github.com/hearthai/cac/internal/cac/compose"
	"github.com/hearthai/cac/internal/cac/config"
	"github.com/hearthai/cac/internal/cac/embedding"
	"github.com/hearthai/cac/internal/cac/evidence"
	"github.com/hearthai/cac/internal/cac/forge"
	"github.com/hearthai/cac/internal/cac/goal"
	"github.com/hearthai/cac/internal/cac/heat"
	"github.com/hearthai/cac/internal/cac/llm"
	"github.com/hearthai/cac/internal/cac/reframe"
	"github.com/hearthai/cac/internal/cac/retrieval"
	"github.com/hearthai/cac/internal/cac/scout"
	"github.com/hearthai/cac/internal/cac/selection"
	"github.com/hearthai/cac/internal/cac/surprise"
	"github.com/hearthai/cac/internal/cac/temporal"
	"github.com/hearthai/cac/internal/cac/types"
	"github.com/hearthai/cac/internal/cac/vectorstore"
)

var tracer = otel.Tracer("cac.orchestrator")

// TrajectoryStore looks up an optional, externally-maintained forward
// summary for a user. A nil Orchestrator.Trajectories is treated as "no
// trajectory available" rather than an error.
type TrajectoryStore interface {
	GetActive(ctx context.Context, userID string) (*types.Trajectory, error)
}

// Request is the input to Assemble (§6's exposed assemble_prefix).
type Request struct {
	UserMessage      string
	UserID           string
	BaseSystemPrompt string
	AffectOverride   *types.AffectShape
	ForgeReset       bool
}

// Diagnostics reports what each stage actually did, for observability —
// never surfaced to the end user, who only ever sees the outbound message
// sent with or without a prefix.
type Diagnostics struct {
	Heat              float64
	Goal              types.Goal
	TemporalDisabled  bool
	EmbeddingFailed   bool
	Stage1Count       int
	Stage2Triggered   bool
	ReweightApplied   bool
	ReframeTriggered  bool
	ScoutFindingCount int
	Warnings          []string
}

func (d *Diagnostics) warn(msg string) {
	d.Warnings = append(d.Warnings, msg)
}

// Result is Assemble's return value. HasPrefix false means "do not modify
// the outbound message."
type Result struct {
	Prefix      string
	HasPrefix   bool
	Diagnostics Diagnostics
}

// Orchestrator owns one instance of every stage, built once at process
// start from a shared config.Registry.
type Orchestrator struct {
	logger *slog.Logger

	// identity holds a types.IdentitySpec and is read on every Assemble
	// call but may be swapped concurrently by SetIdentity when the
	// identity file is hot-reloaded, so it's stored behind atomic.Value
	// rather than guarded with a mutex on the read hot path.
	identity atomic.Value

	embedder embedding.Embedder
	store    vectorstore.VectorStore

	heatEstimator  *heat.Estimator
	goalClassifier *goal.Classifier
	affectDetector *affect.Detector
	forgeDetector  *forge.Detector

	retriever     *retrieval.Retriever
	reranker      *surprise.Reranker // nil when no Chat provider is configured
	surpriseCache *surprise.Cache    // shared with reranker; nil when reranker is nil
	reframer      *reframe.Reframer  // nil when no Chat provider is configured

	selector      *selection.Selector
	scoutAnalyzer *scout.Analyzer

	trajectories TrajectoryStore // optional
}

// Dependencies bundles every external collaborator the orchestrator needs.
// Chat is optional: without one, Stage 2 and Stage 3 are permanently
// disabled and the pipeline runs Stage-1-only, which is a valid
// fail-open configuration, not an error.
type Dependencies struct {
	Registry        *config.Registry
	Logger          *slog.Logger
	Identity        types.IdentitySpec
	Embedder        embedding.Embedder
	Store           vectorstore.VectorStore
	Chat            llm.Chat
	EvidenceStore   evidence.Store
	Trajectories    TrajectoryStore
	SurpriseCache   *surprise.Cache
}

// New wires every stage from deps. Returns an error only if a stage's own
// table fails to compile (a build-time defect in the embedded config,
// never a runtime condition).
func New(deps Dependencies) (*Orchestrator, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	heatEstimator, err := heat.New(deps.Registry)
	if err != nil {
		return nil, err
	}
	goalClassifier, err := goal.New(deps.Registry)
	if err != nil {
		return nil, err
	}
	affectDetector, err := affect.New(deps.Registry)
	if err != nil {
		return nil, err
	}
	forgeDetector, err := forge.New(deps.Registry)
	if err != nil {
		return nil, err
	}

	evidenceStore := deps.EvidenceStore
	if evidenceStore == nil {
		evidenceStore = evidence.NewMemoryStore(evidence.Config{
			MaxPerPattern: deps.Registry.Scoring.Evidence.MaxPerPattern,
			MaxAge:        time.Duration(deps.Registry.Scoring.Evidence.MaxAgeDays) * 24 * time.Hour,
		})
	}
	scoutAnalyzer, err := scout.New(deps.Registry, evidenceStore)
	if err != nil {
		return nil, err
	}

	retriever := retrieval.New(deps.Store, deps.Registry.Scoring.Retrieval, logger)

	var reranker *surprise.Reranker
	var reframer *reframe.Reframer
	var cache *surprise.Cache
	if deps.Chat != nil {
		cache = deps.SurpriseCache
		if cache == nil {
			cache = surprise.NewCache()
		}
		reranker = surprise.New(deps.Chat, cache, deps.Registry.Scoring.Surprise, logger)
		reframer = reframe.New(deps.Chat, logger)
	}

	orch := &Orchestrator{
		logger:         logger,
		embedder:       deps.Embedder,
		store:          deps.Store,
		heatEstimator:  heatEstimator,
		goalClassifier: goalClassifier,
		affectDetector: affectDetector,
		forgeDetector:  forgeDetector,
		retriever:      retriever,
		reranker:       reranker,
		surpriseCache:  cache,
		reframer:       reframer,
		selector:       selection.NewSelector(deps.Registry),
		scoutAnalyzer:  scoutAnalyzer,
		trajectories:   deps.Trajectories,
	}
	orch.identity.Store(deps.Identity)
	return orch, nil
}

// SetIdentity swaps the operating specification injected into every
// subsequent Assemble call. Safe to call concurrently with Assemble; an
// in-flight call always sees either the old or the new spec, never a torn
// read. Used by the identity package's file watcher to apply a hot-reloaded
// spec without restarting the process.
func (o *Orchestrator) SetIdentity(spec types.IdentitySpec) {
	o.identity.Store(spec)
}

func (o *Orchestrator) currentIdentity() types.IdentitySpec {
	spec, _ := o.identity.Load().(types.IdentitySpec)
	return spec
}

// Assemble runs the full pipeline for one message (§4.15's control flow).
// now is injected for deterministic, testable time-dependent stages
// (temporal gate, Scout confidence decay).
func (o *Orchestrator) Assemble(ctx context.Context, req Request, now time.Time) Result {
	ctx, span := tracer.Start(ctx, "assemble_prefix")
	defer span.End()

	var diag Diagnostics

	if ctx.Err() != nil {
		return Result{Diagnostics: diag}
	}

	affectResult := o.resolveAffect(req)
	diag.Heat = o.resolveHeat(req, affectResult)

	goalLabel := o.goalClassifier.Classify(req.UserMessage)
	diag.Goal = goalLabel

	window := temporal.Gate(diag.Heat, now)
	diag.TemporalDisabled = window.Disabled

	var userMemories, aiMemories []types.Memory
	if !window.Disabled {
		userMemories, aiMemories = o.retrieveAndSelect(ctx, req, goalLabel, diag.Heat, window.Cutoff, affectResult, &diag)
	}

	forgeResult := o.forgeDetector.Detect(req.UserMessage, req.ForgeReset, forgeAffectInput(affectResult))

	var findings []scout.Finding
	selected := append(append([]types.Memory{}, userMemories...), aiMemories...)
	if len(selected) > 0 {
		f, err := o.scoutAnalyzer.Analyze(ctx, selected, req.UserMessage, now)
		if err != nil {
			diag.warn("scout: " + err.Error())
		} else {
			findings = f
		}
	}
	diag.ScoutFindingCount = len(findings)

	var trajectory *types.Trajectory
	if o.trajectories != nil && req.UserID != "" {
		t, err := o.trajectories.GetActive(ctx, req.UserID)
		if err != nil {
			diag.warn("trajectory lookup: " + err.Error())
		} else {
			trajectory = t
		}
	}

	prefix := compose.Compose(compose.Input{
		Identity:      o.currentIdentity(),
		Affect:        &affectResult,
		Forge:         &forgeResult,
		UserMemories:  userMemories,
		AIMemories:    aiMemories,
		ScoutFindings: findings,
		Trajectory:    trajectory,
	})

	if ctx.Err() != nil {
		return Result{Diagnostics: diag}
	}

	return Result{Prefix: prefix, HasPrefix: true, Diagnostics: diag}
}

func (o *Orchestrator) resolveAffect(req Request) types.AffectResult {
	if req.AffectOverride != nil {
		return types.AffectResult{Shape: *req.AffectOverride}
	}
	return o.affectDetector.Detect(req.UserMessage)
}

// resolveHeat uses the override shape directly when the caller supplied
// one (skipping the lexical classifier entirely, since the shape is
// already known), and falls back to text classification otherwise.
func (o *Orchestrator) resolveHeat(req Request, affectResult types.AffectResult) float64 {
	if req.AffectOverride != nil {
		return heat.FromAffect(affectResult.Shape)
	}
	return o.heatEstimator.FromText(req.UserMessage)
}

func forgeAffectInput(r types.AffectResult) *types.AffectShape {
	return &r.Shape
}

// retrieveAndSelect runs Stage 1 through the diverse selector, optionally
// through Stage 2 and Stage 3, and splits the result back into pools for
// the composer. Any stage failure degrades to the best partial memory set
// rather than aborting.
func (o *Orchestrator) retrieveAndSelect(ctx context.Context, req Request, goalLabel types.Goal, h float64, cutoff time.Time, affectResult types.AffectResult, diag *Diagnostics) ([]types.Memory, []types.Memory) {
	if o.embedder == nil {
		diag.warn("embedder not configured")
		return nil, nil
	}

	vec, err := o.embedder.Embed(ctx, req.UserMessage)
	if err != nil {
		diag.EmbeddingFailed = true
		diag.warn("embed: " + err.Error())
		return nil, nil
	}

	candidates, err := o.retriever.Search(ctx, vec, cutoff)
	if err != nil {
		diag.warn("retrieval: " + err.Error())
		return nil, nil
	}
	diag.Stage1Count = len(candidates)
	if len(candidates) == 0 {
		return nil, nil
	}

	dominantDomain, dominant := retrieval.DominanceCheck(candidates)
	stage2Available := dominant && o.reranker != nil && req.BaseSystemPrompt != ""
	result, triggerStage2 := retrieval.RunDominance(candidates, stage2Available)
	candidates = result.Candidates

	if triggerStage2 {
		reranked, ok := o.reranker.Rerank(ctx, candidates, dominantDomain, req.BaseSystemPrompt, req.UserMessage)
		if ok {
			candidates = reranked
			diag.Stage2Triggered = true
		} else {
			diag.warn("stage2: baseline logprob call failed, using stage 1 ordering")
		}
	} else if dominant {
		diag.ReweightApplied = true
	}

	candidates = selection.Deduplicate(candidates)
	selected := o.selector.Select(candidates, goalLabel, h, true)

	if o.reframer != nil && affect.NeedsReframe(affectResult.Shape) {
		selected = o.reframer.Reframe(ctx, selected, affectResult.ComplementText)
		diag.ReframeTriggered = true
	}

	if o.store != nil {
		o.markAccessed(ctx, selected, time.Now())
	}

	return splitByPool(selected)
}

func (o *Orchestrator) markAccessed(ctx context.Context, selected []types.Memory, now time.Time) {
	for _, mem := range selected {
		mem.AccessCount++
		mem.LastAccessed = now
		if err := o.store.Upsert(ctx, mem); err != nil {
			o.logger.WarnContext(ctx, "mark accessed failed", "memory_id", mem.ID, "error", err)
		}
	}
}

func splitByPool(memories []types.Memory) (user, ai []types.Memory) {
	for _, m := range memories {
		if m.Pool == types.PoolAI {
			ai = append(ai, m)
		} else {
			user = append(user, m)
		}
	}
	return user, ai
}

// InvalidateSurpriseCache drops every cached KL score, per §4.7's
// invalidation triggers (memory mutation or a synthesis event). The cache
// has no per-memory index, so invalidation is wholesale rather than
// scoped to one memory ID; callers do not need to track which memories
// were touched.
func (o *Orchestrator) InvalidateSurpriseCache() {
	if o.surpriseCache == nil {
		return
	}
	o.surpriseCache.Invalidate()
}

// DetectAffect exposes the affect detector directly (§6's detect_affect).
func (o *Orchestrator) DetectAffect(text string) types.AffectResult {
	return o.affectDetector.Detect(text)
}

// DetectPhase exposes the Forge detector directly (§6's detect_phase).
func (o *Orchestrator) DetectPhase(text string, reset bool) types.ForgeResult {
	return o.forgeDetector.Detect(text, reset, nil)
}
