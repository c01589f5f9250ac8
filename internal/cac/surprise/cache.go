// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package surprise

import "sync"

// cacheKey identifies one cached KL score: a memory paired with the message
// context it was scored against (§4.7's "(memory_id, context_hash)").
type cacheKey struct {
	memoryID    string
	contextHash string
}

// Cache memoizes per-candidate KL scores across calls. It is invalidated
// wholesale on memory writes and on synthesis events (§4.7), rather than by
// individual key — both triggers mean "assume every prior score may now be
// wrong."
type Cache struct {
	mu     sync.RWMutex
	scores map[cacheKey]float64
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{scores: make(map[cacheKey]float64)}
}

func (c *Cache) get(key cacheKey) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.scores[key]
	return v, ok
}

func (c *Cache) set(key cacheKey, kl float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scores[key] = kl
}

// Invalidate drops every cached score. Call this when a memory is written,
// updated, or deleted, or when the assistant produces a synthesis event.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scores = make(map[cacheKey]float64)
}

// Len reports the number of cached entries, for tests and diagnostics.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.scores)
}
