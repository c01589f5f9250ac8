// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package evidence

import (
	"context"
	"sync"
	"time"

	"github.com/hearthai/cac/internal/cac/types"
)

// MemoryStore is an in-process Store, the reference implementation for
// tests and for deployments with no durable evidence requirement.
type MemoryStore struct {
	mu      sync.Mutex
	cfg     Config
	records map[string][]types.PatternEvidence
}

// NewMemoryStore builds an empty in-memory evidence store.
func NewMemoryStore(cfg Config) *MemoryStore {
	return &MemoryStore{cfg: cfg.normalized(), records: make(map[string][]types.PatternEvidence)}
}

// Append adds ev to its pattern's history and prunes to the configured
// bounds. One store-wide mutex serialises every Append and Load, across all
// patterns.
func (s *MemoryStore) Append(_ context.Context, ev types.PatternEvidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[ev.PatternID] = prune(append(s.records[ev.PatternID], ev), s.cfg, time.Now())
	return nil
}

// Load returns a copy of the pattern's retained evidence.
func (s *MemoryStore) Load(_ context.Context, patternID string) ([]types.PatternEvidence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.records[patternID]
	out := make([]types.PatternEvidence, len(src))
	copy(out, src)
	return out, nil
}

// Delete removes the pattern's history entirely. A no-op if none exists.
func (s *MemoryStore) Delete(_ context.Context, patternID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, patternID)
	return nil
}
