// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package surprise implements the Stage 2 KL re-ranker (§4.7). Within a
// single dominant domain, cosine similarity stops discriminating well; this
// package replaces it with a proxy for how much a candidate memory would
// shift the model's next-token distribution if injected into the prompt.
package surprise

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/hearthai/cac/internal/cac/config"
	"github.com/hearthai/cac/internal/cac/llm"
	"github.com/hearthai/cac/internal/cac/types"
	"github.com/hearthai/cac/internal/cac/vecmath"
)

var (
	klScoreFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cac",
		Subsystem: "surprise",
		Name:      "candidate_score_failures_total",
		Help:      "Per-candidate logprob calls that failed and fell back to KL=0",
	})

	baselineFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cac",
		Subsystem: "surprise",
		Name:      "baseline_failures_total",
		Help:      "Baseline distribution calls that failed, aborting the re-rank",
	})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cac",
		Subsystem: "surprise",
		Name:      "cache_hits_total",
		Help:      "KL scores served from the memory/context cache",
	})
)

var tracer = otel.Tracer("cac.surprise")

// Reranker computes and caches Stage 2 KL scores.
type Reranker struct {
	chat   llm.Chat
	cache  *Cache
	cfg    config.SurpriseConfig
	logger *slog.Logger
}

// New builds a Reranker. cache may be shared across calls within a process
// so repeated retrievals in one conversation reuse prior scores.
func New(chat llm.Chat, cache *Cache, cfg config.SurpriseConfig, logger *slog.Logger) *Reranker {
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = NewCache()
	}
	if cfg.TopCandidatesIn == 0 {
		cfg.TopCandidatesIn = 8
	}
	if cfg.TopCandidatesOut == 0 {
		cfg.TopCandidatesOut = 5
	}
	if cfg.TopLogprobsK == 0 {
		cfg.TopLogprobsK = 20
	}
	if cfg.Epsilon == 0 {
		cfg.Epsilon = 1e-10
	}
	return &Reranker{chat: chat, cache: cache, cfg: cfg, logger: logger}
}

// ContextHash derives the stable cache-key component for a message, per the
// Open Question resolution recorded in the expanded specification: the hash
// covers the raw user message only.
func ContextHash(userMessage string) string {
	sum := sha256.Sum256([]byte(userMessage))
	return hex.EncodeToString(sum[:])
}

// Rerank implements §4.7 end to end. all is the full Stage 1 union;
// dominantDomain is the domain the dominance check (§4.6) found dominant.
// Non-dominant candidates pass through unchanged. On any baseline failure,
// the original ordering is returned unchanged and ok is false so the caller
// knows Stage 2 did not run.
func (r *Reranker) Rerank(ctx context.Context, all []types.Memory, dominantDomain types.Domain, baseSystemPrompt, userMessage string) (result []types.Memory, ok bool) {
	ctx, span := tracer.Start(ctx, "surprise.Rerank",
		trace.WithAttributes(attribute.String("dominant_domain", string(dominantDomain))))
	defer span.End()

	var dominant, rest []types.Memory
	for _, mem := range all {
		if mem.Domain == dominantDomain {
			dominant = append(dominant, mem)
		} else {
			rest = append(rest, mem)
		}
	}

	sort.Slice(dominant, func(i, j int) bool { return dominant[i].Similarity > dominant[j].Similarity })
	if len(dominant) > r.cfg.TopCandidatesIn {
		dominant = dominant[:r.cfg.TopCandidatesIn]
	}
	if len(dominant) == 0 {
		return all, false
	}

	contextHash := ContextHash(userMessage)

	scores, computed := r.scoreCandidates(ctx, dominant, baseSystemPrompt, userMessage, contextHash)
	if !computed {
		// Baseline failed: §4.7 says return the original Stage 1 ordering
		// unchanged.
		return all, false
	}

	for i := range dominant {
		dominant[i].SurpriseScore = scores[dominant[i].ID]
		dominant[i].HasSurprise = true
	}
	sort.Slice(dominant, func(i, j int) bool { return dominant[i].SurpriseScore > dominant[j].SurpriseScore })
	if len(dominant) > r.cfg.TopCandidatesOut {
		dominant = dominant[:r.cfg.TopCandidatesOut]
	}

	span.SetAttributes(attribute.Int("reranked_count", len(dominant)))
	return append(rest, dominant...), true
}

// scoreCandidates computes baseline P0 (once, only if any candidate is a
// cache miss) and the per-candidate KL score for each dominant-domain
// memory. computed is false only when the baseline call itself fails.
func (r *Reranker) scoreCandidates(ctx context.Context, dominant []types.Memory, baseSystemPrompt, userMessage, contextHash string) (map[string]float64, bool) {
	scores := make(map[string]float64, len(dominant))
	var misses []types.Memory
	for _, mem := range dominant {
		if kl, hit := r.cache.get(cacheKey{memoryID: mem.ID, contextHash: contextHash}); hit {
			cacheHits.Inc()
			scores[mem.ID] = kl
			continue
		}
		misses = append(misses, mem)
	}
	if len(misses) == 0 {
		return scores, true
	}

	baseline, err := r.chat.CompleteLogprobs(ctx, baseSystemPrompt, userMessage, r.cfg.TopLogprobsK)
	if err != nil {
		baselineFailures.Inc()
		r.logger.Warn("surprise: baseline distribution call failed, aborting rerank", "err", err)
		return nil, false
	}
	p0 := normalize(baseline.TopLogprobs)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, mem := range misses {
		mem := mem
		g.Go(func() error {
			kl := r.scoreOne(gctx, mem, baseSystemPrompt, userMessage, p0)
			r.cache.set(cacheKey{memoryID: mem.ID, contextHash: contextHash}, kl)
			mu.Lock()
			scores[mem.ID] = kl
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return scores, true
}

// scoreOne computes KL(Pi || P0) for a single candidate. A failed logprobs
// call degrades to KL=0 rather than aborting the whole rerank (§4.7).
func (r *Reranker) scoreOne(ctx context.Context, mem types.Memory, baseSystemPrompt, userMessage string, p0 map[string]float64) float64 {
	conditionedPrompt := fmt.Sprintf("%s\n\n<memory>\n%s\n</memory>", baseSystemPrompt, mem.Content)
	res, err := r.chat.CompleteLogprobs(ctx, conditionedPrompt, userMessage, r.cfg.TopLogprobsK)
	if err != nil {
		klScoreFailures.Inc()
		r.logger.Warn("surprise: candidate logprob call failed, scoring KL=0", "memory_id", mem.ID, "err", err)
		return 0
	}
	pi := normalize(res.TopLogprobs)
	return klDivergenceBits(pi, p0, r.cfg.Epsilon)
}

// normalize turns raw log-probabilities into a probability distribution
// over tokens: exp(logprob), renormalized to sum to 1.
func normalize(tokens []llm.TokenLogprob) map[string]float64 {
	dist := make(map[string]float64, len(tokens))
	var sum float64
	for _, t := range tokens {
		p := math.Exp(t.Logprob)
		dist[t.Token] = p
		sum += p
	}
	if sum == 0 {
		return dist
	}
	for t := range dist {
		dist[t] /= sum
	}
	return dist
}

// klDivergenceBits computes KL(pCond || pBase) in bits, per §4.7's formula
// Σ_t Pi(t)·log2(Pi(t) / max(P0(t), ε)). The two token-keyed distributions
// are sparse (only tokens that appeared in the top-K logprobs are present),
// so they're aligned into dense vectors over pCond's token set before
// handing off to vecmath.KLDivergence, which does the actual Gibbs-sum
// computation in nats; dividing by ln(2) converts to bits. Tokens absent
// from pCond don't contribute, matching the formula's Pi(t) = 0 case.
func klDivergenceBits(pCond, pBase map[string]float64, epsilon float64) float64 {
	pi := make([]float64, 0, len(pCond))
	p0 := make([]float64, 0, len(pCond))
	for token, mass := range pCond {
		pi = append(pi, mass)
		p0 = append(p0, pBase[token])
	}
	return vecmath.KLDivergence(pi, p0, epsilon) / math.Ln2
}
