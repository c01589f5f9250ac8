// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package forge

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hearthai/cac/internal/cac/config"
	"github.com/hearthai/cac/internal/cac/types"
)

func newTestDetector(t *testing.T) *Detector {
	t.Helper()
	reg, err := config.Load()
	require.NoError(t, err)
	d, err := New(reg)
	require.NoError(t, err)
	return d
}

func TestDetectDiverging(t *testing.T) {
	d := newTestDetector(t)
	res := d.Detect("what about this, or maybe we brainstorm another option, or we could try something else", false, nil)
	require.Equal(t, types.PhaseDiverging, res.Phase)
	require.Greater(t, res.Openness, res.Materiality)
}

func TestDetectRefining(t *testing.T) {
	d := newTestDetector(t)
	res := d.Detect("let's tweak this, polish the wording, one more pass and final touches", false, nil)
	require.Equal(t, types.PhaseRefining, res.Phase)
	require.Greater(t, res.Materiality, res.Openness)
}

func TestDetectNeutralWhenNoMarkers(t *testing.T) {
	d := newTestDetector(t)
	res := d.Detect("the train leaves at noon", false, nil)
	require.Equal(t, types.PhaseNeutral, res.Phase)
}

func TestFusionLine(t *testing.T) {
	d := newTestDetector(t)
	shape := types.AffectShape{Expansion: -0.5}
	res := d.Detect("what about this, or maybe another option, or we could brainstorm", false, &shape)
	require.Equal(t, types.PhaseDiverging, res.Phase)
	require.NotEmpty(t, res.FusionText)
}

func TestResetClearsBuffer(t *testing.T) {
	d := newTestDetector(t)
	d.Detect("what about this or maybe another option", false, nil)
	res := d.Detect("the train leaves at noon", true, nil)
	require.Equal(t, types.PhaseNeutral, res.Phase)
}

func TestBufferIsBounded(t *testing.T) {
	d := newTestDetector(t)
	for i := 0; i < 20; i++ {
		d.Detect("neutral filler message", false, nil)
	}
	d.mu.Lock()
	size := len(d.buffer)
	d.mu.Unlock()
	require.LessOrEqual(t, size, d.bufferSize)
}

func TestDetectorPerConversationIsolation(t *testing.T) {
	reg, err := config.Load()
	require.NoError(t, err)
	a, err := New(reg)
	require.NoError(t, err)
	b, err := New(reg)
	require.NoError(t, err)

	a.Detect("what about this or maybe another option or we could brainstorm", false, nil)
	res := b.Detect("the train leaves at noon", false, nil)
	require.Equal(t, types.PhaseNeutral, res.Phase)
}
