// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package vecmath holds the numeric primitives shared by the vector store
// and the Stage 2 surprise re-ranker: cosine similarity (gonum's floats
// package) and KL divergence (gonum's stat package), rather than hand-rolled
// loops over either.
package vecmath

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/hearthai/cac/internal/cac/types"
)

// Cosine computes cosine similarity between two vectors of equal length.
// Returns 0 for a zero-length vector or a length mismatch rather than
// panicking — callers run this on untrusted embedding output.
func Cosine(a, b types.Vector) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	af := toFloat64(a)
	bf := toFloat64(b)

	dot := floats.Dot(af, bf)
	normA := floats.Norm(af, 2)
	normB := floats.Norm(bf, 2)
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (normA * normB)
}

func toFloat64(v types.Vector) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// KLDivergence computes KL(p || q) = Σ p_i·log(p_i / max(q_i, epsilon)) over
// two probability distributions of equal length, in nats. Terms where p_i
// is zero or negative are dropped before the call reaches gonum's
// stat.KullbackLeibler, since they contribute 0 to the sum by convention but
// would otherwise divide by an unfloored q_i of 0. q_i is floored to epsilon
// wherever it falls short, so a token with no mass under q never produces an
// undefined ratio.
func KLDivergence(p, q []float64, epsilon float64) float64 {
	n := len(p)
	if len(q) < n {
		n = len(q)
	}
	pp := make([]float64, 0, n)
	qq := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if p[i] <= 0 {
			continue
		}
		qi := q[i]
		if qi < epsilon {
			qi = epsilon
		}
		pp = append(pp, p[i])
		qq = append(qq, qi)
	}
	if len(pp) == 0 {
		return 0
	}
	return stat.KullbackLeibler(pp, qq)
}
