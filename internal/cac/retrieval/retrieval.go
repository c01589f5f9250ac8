// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package retrieval implements Stage 1 (§4.5): parallel user/ai pool search
// against the vector store, followed by the domain dominance check (§4.6)
// that decides whether Stage 2 re-ranking should run.
package retrieval

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/hearthai/cac/internal/cac/config"
	"github.com/hearthai/cac/internal/cac/types"
	"github.com/hearthai/cac/internal/cac/vectorstore"
)

var (
	stage1Latency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cac",
		Subsystem: "retrieval",
		Name:      "stage1_latency_seconds",
		Help:      "Latency of the Stage 1 parallel pool search",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
	})

	stage1PoolErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cac",
		Subsystem: "retrieval",
		Name:      "stage1_pool_errors_total",
		Help:      "Stage 1 pool search failures by pool",
	}, []string{"pool"})

	dominanceTriggered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cac",
		Subsystem: "retrieval",
		Name:      "dominance_outcome_total",
		Help:      "Domain dominance outcomes: stage2, reweight, none",
	}, []string{"outcome"})
)

var tracer = otel.Tracer("cac.retrieval")

// Result is Stage 1's output: the unioned, pool-tagged candidate set plus
// the dominance verdict that downstream stages branch on.
type Result struct {
	Candidates     []types.Memory
	DominantDomain types.Domain
	IsDominant     bool
}

// Retriever performs Stage 1 search and the domain dominance check.
type Retriever struct {
	store  vectorstore.VectorStore
	cfg    config.RetrievalConfig
	logger *slog.Logger
}

// New builds a Retriever against the given vector store.
func New(store vectorstore.VectorStore, cfg config.RetrievalConfig, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SimilarityThreshold == 0 {
		cfg.SimilarityThreshold = 0.35
	}
	if cfg.MaxCandidates == 0 {
		cfg.MaxCandidates = 15
	}
	return &Retriever{store: store, cfg: cfg, logger: logger}
}

// Search runs the two pool searches concurrently and unions the results.
// A pool search failure is logged and treated as an empty result for that
// pool rather than aborting the call — retrieval is fail-open end to end.
func (r *Retriever) Search(ctx context.Context, embedding types.Vector, cutoff time.Time) ([]types.Memory, error) {
	ctx, span := tracer.Start(ctx, "retrieval.Search",
		trace.WithAttributes(attribute.Bool("cutoff_set", !cutoff.IsZero())))
	defer span.End()

	start := time.Now()
	defer func() { stage1Latency.Observe(time.Since(start).Seconds()) }()

	pools := []types.Pool{types.PoolUser, types.PoolAI}
	results := make([][]types.Memory, len(pools))

	g, gctx := errgroup.WithContext(ctx)
	for i, pool := range pools {
		i, pool := i, pool
		g.Go(func() error {
			res, err := r.store.Search(gctx, embedding, vectorstore.SearchOptions{
				Pool:      pool,
				Threshold: r.cfg.SimilarityThreshold,
				Max:       r.cfg.MaxCandidates,
				Cutoff:    cutoff,
			})
			if err != nil {
				stage1PoolErrors.WithLabelValues(string(pool)).Inc()
				r.logger.Warn("retrieval: pool search failed, treating as empty", "pool", pool, "err", err)
				return nil
			}
			for j := range res {
				res[j].Pool = pool
			}
			results[i] = res
			return nil
		})
	}
	// errgroup.Wait never returns an error here: pool failures are absorbed
	// above so a single store outage does not cancel the sibling search.
	_ = g.Wait()

	var union []types.Memory
	for _, res := range results {
		union = append(union, res...)
	}

	span.SetAttributes(attribute.Int("candidate_count", len(union)))
	span.SetStatus(codes.Ok, "")
	return union, nil
}

// DominanceCheck implements §4.6. n is ⌊len(candidates)/2⌋; a domain is
// dominant when its count strictly exceeds that floor.
func DominanceCheck(candidates []types.Memory) (domain types.Domain, dominant bool) {
	if len(candidates) == 0 {
		return "", false
	}
	counts := make(map[types.Domain]int, len(types.AllDomains))
	for _, mem := range candidates {
		counts[mem.Domain]++
	}

	threshold := len(candidates) / 2
	var best types.Domain
	bestCount := 0
	for d, c := range counts {
		if c > bestCount {
			best, bestCount = d, c
		}
	}
	return best, bestCount > threshold
}

// Reweight applies the fixed pattern-vs-fact adjustment used when a domain
// is dominant but Stage 2 cannot run (no base system prompt available).
func Reweight(candidates []types.Memory) {
	for i := range candidates {
		if candidates[i].Class() == types.ClassPattern {
			candidates[i].Similarity *= 1.3
		} else {
			candidates[i].Similarity *= 0.85
		}
	}
}

// RunDominance executes §4.6 end to end: compute the dominance verdict and,
// when dominant but Stage 2 is unavailable, apply the reweight in place.
// It reports the outcome so callers know whether Stage 2 should run.
func RunDominance(candidates []types.Memory, stage2Available bool) (result Result, triggerStage2 bool) {
	domain, dominant := DominanceCheck(candidates)
	result = Result{Candidates: candidates, DominantDomain: domain, IsDominant: dominant}

	switch {
	case dominant && stage2Available:
		dominanceTriggered.WithLabelValues("stage2").Inc()
		return result, true
	case dominant:
		dominanceTriggered.WithLabelValues("reweight").Inc()
		Reweight(candidates)
		return result, false
	default:
		dominanceTriggered.WithLabelValues("none").Inc()
		return result, false
	}
}
