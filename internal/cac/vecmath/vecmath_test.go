// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package vecmath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hearthai/cac/internal/cac/types"
)

func TestCosineIdentical(t *testing.T) {
	v := types.Vector{1, 2, 3}
	require.InDelta(t, 1.0, Cosine(v, v), 1e-9)
}

func TestCosineOrthogonal(t *testing.T) {
	require.InDelta(t, 0.0, Cosine(types.Vector{1, 0}, types.Vector{0, 1}), 1e-9)
}

func TestCosineOpposite(t *testing.T) {
	require.InDelta(t, -1.0, Cosine(types.Vector{1, 0}, types.Vector{-1, 0}), 1e-9)
}

func TestCosineMismatchedLengthIsZero(t *testing.T) {
	require.Equal(t, 0.0, Cosine(types.Vector{1, 2}, types.Vector{1, 2, 3}))
}

func TestCosineZeroVectorIsZero(t *testing.T) {
	require.Equal(t, 0.0, Cosine(types.Vector{0, 0}, types.Vector{1, 1}))
}

func TestKLDivergenceIdenticalIsZero(t *testing.T) {
	p := []float64{0.2, 0.3, 0.5}
	require.InDelta(t, 0.0, KLDivergence(p, p, 1e-10), 1e-6)
}

func TestKLDivergenceNonNegative(t *testing.T) {
	p := []float64{0.9, 0.05, 0.05}
	q := []float64{0.1, 0.1, 0.8}
	d := KLDivergence(p, q, 1e-10)
	require.GreaterOrEqual(t, d, 0.0)
	require.False(t, math.IsNaN(d))
}

func TestKLDivergenceAsymmetric(t *testing.T) {
	p := []float64{0.9, 0.1}
	q := []float64{0.1, 0.9}
	require.NotEqual(t, KLDivergence(p, q, 1e-10), KLDivergence(q, p, 1e-10))
}
