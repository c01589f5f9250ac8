// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ctxerr defines the Context Assembly Core's error taxonomy (§7)
// and a classifier that maps raw transport errors onto it. Every stage
// wraps its failures in one of these sentinels so the orchestrator can make
// a single fail-open decision without string-matching at the call site.
package ctxerr

import (
	"context"
	"errors"
	"strings"
)

// Sentinel errors. Stages wrap these with fmt.Errorf("...: %w", Sentinel)
// so errors.Is still matches after additional context is added.
var (
	EmbedFailed     = errors.New("embed failed")
	SearchFailed    = errors.New("vector search failed")
	LogprobsFailed  = errors.New("logprobs call failed")
	RewriteFailed   = errors.New("rewrite call failed")
	StoreUnavailable = errors.New("store unavailable")
	Cancelled       = errors.New("cancelled")
	Timeout         = errors.New("timeout")
)

// Classify maps a raw error (typically from an HTTP/gRPC call) onto the
// taxonomy above. It never returns nil for a non-nil input: unrecognized
// errors fall through to the category-specific sentinel passed as
// fallback, so every call site still gets one of the known taxonomy
// values to reason about.
//
// Inspects context cancellation first, then falls back to substrings of
// the error message for rate-limit/timeout signals.
func Classify(err error, fallback error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return Cancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"), strings.Contains(msg, "rate limit"), strings.Contains(msg, "too many requests"):
		return fallback
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return Timeout
	case strings.Contains(msg, "canceled"), strings.Contains(msg, "cancelled"):
		return Cancelled
	default:
		return fallback
	}
}

// IsRetryable reports whether the raw error (pre-classification) looks like
// a transient failure worth retrying with backoff: rate limits and generic
// 5xx-shaped server errors, but not auth or malformed-request errors.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"), strings.Contains(msg, "rate limit"), strings.Contains(msg, "too many requests"):
		return true
	case strings.Contains(msg, "503"), strings.Contains(msg, "502"), strings.Contains(msg, "500"):
		return true
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"), strings.Contains(msg, "connection reset"):
		return true
	default:
		return false
	}
}
