// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package selection implements the dedup/score/select pipeline that turns
// Stage 1/2 candidates into the final per-pool memory set (§4.8-§4.10).
package selection

import (
	"github.com/agnivade/levenshtein"

	"github.com/hearthai/cac/internal/cac/types"
)

// dedupKeyLen is the content prefix length used as the primary dedup key
// (§4.8: "Key by first 50 characters of content").
const dedupKeyLen = 50

// fuzzyDistanceThreshold is the maximum Levenshtein distance between two
// dedup keys for them to be treated as near-duplicates when their exact
// 50-character prefixes differ only by minor edits (punctuation, casing
// drift from a rewrite). This is a supplement to the exact-key pass, not a
// replacement for it — most duplicates share an identical prefix.
const fuzzyDistanceThreshold = 4

// Deduplicate removes near-duplicate memories in a single pass keyed by
// content prefix, keeping the highest-similarity representative per key.
// Each memory is compared against every bucket found so far, so the pass
// costs O(n·k) for k buckets rather than O(n).
// A lightweight fuzzy fallback additionally merges keys that are within a
// small edit distance of one another, catching duplicates whose first 50
// characters differ by punctuation or a rewritten word.
func Deduplicate(memories []types.Memory) []types.Memory {
	type bucket struct {
		best types.Memory
		key  string
	}

	buckets := make([]bucket, 0, len(memories))
	for _, mem := range memories {
		key := dedupKey(mem.Content)

		matched := -1
		for i, b := range buckets {
			if b.key == key {
				matched = i
				break
			}
			if levenshtein.ComputeDistance(b.key, key) <= fuzzyDistanceThreshold {
				matched = i
				break
			}
		}

		if matched == -1 {
			buckets = append(buckets, bucket{best: mem, key: key})
			continue
		}
		if mem.Similarity > buckets[matched].best.Similarity {
			// The bucket's key must track its current best member's own
			// content, not the founding member's — otherwise a later
			// arrival in this same pass compares against a stale key that
			// a second dedup pass would never produce, breaking
			// idempotence (dedup(dedup(xs)) == dedup(xs)).
			buckets[matched].best = mem
			buckets[matched].key = dedupKey(mem.Content)
		}
	}

	out := make([]types.Memory, len(buckets))
	for i, b := range buckets {
		out[i] = b.best
	}
	return out
}

func dedupKey(content string) string {
	if len(content) <= dedupKeyLen {
		return content
	}
	return content[:dedupKeyLen]
}
