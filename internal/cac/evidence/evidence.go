// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package evidence persists PatternEvidence records for the Scout (§4.13):
// append-only observations of a behavioral pattern firing or being
// contradicted, pruned on write to a bounded count and age per pattern.
package evidence

import (
	"context"
	"time"

	"github.com/hearthai/cac/internal/cac/types"
)

// Store persists and loads pattern evidence. Append enforces the §4.13/§6
// retention bounds (MAX_EVIDENCE_PER_PATTERN, MAX_AGE_DAYS) itself, so
// callers never need to prune explicitly.
type Store interface {
	// Append writes one evidence record, pruning the pattern's history to
	// the configured bounds afterward.
	Append(ctx context.Context, ev types.PatternEvidence) error
	// Load returns all retained evidence for a pattern, oldest first.
	Load(ctx context.Context, patternID string) ([]types.PatternEvidence, error)
	// Delete removes all retained evidence for a pattern outright. Unlike
	// the implicit age/count pruning Append performs, this is an explicit
	// operator action — e.g. a pattern definition is retired from the
	// taxonomy and its accumulated evidence should not linger. Deleting a
	// pattern with no evidence is not an error.
	Delete(ctx context.Context, patternID string) error
}

// Config bounds retention per pattern (§6's default MAX_EVIDENCE_PER_PATTERN
// = 100, MAX_AGE_DAYS = 365).
type Config struct {
	MaxPerPattern int
	MaxAge        time.Duration
}

func (c Config) normalized() Config {
	if c.MaxPerPattern <= 0 {
		c.MaxPerPattern = 100
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 365 * 24 * time.Hour
	}
	return c
}

// prune drops records older than maxAge, then truncates to the most recent
// maxCount, preserving chronological order.
func prune(records []types.PatternEvidence, cfg Config, now time.Time) []types.PatternEvidence {
	cutoff := now.Add(-cfg.MaxAge)
	kept := records[:0:0]
	for _, r := range records {
		if r.ObservedAt.After(cutoff) {
			kept = append(kept, r)
		}
	}
	if len(kept) > cfg.MaxPerPattern {
		kept = kept[len(kept)-cfg.MaxPerPattern:]
	}
	return kept
}
