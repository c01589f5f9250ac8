// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package temporal implements the temporal gate (§4.3): maps a heat value
// to a retrieval cutoff, or disables retrieval entirely for cold queries.
package temporal

import "time"

// Window describes the retrieval time window chosen for a given heat value.
type Window struct {
	Disabled bool
	// Cutoff is the earliest created_at a memory must have to be eligible.
	// Zero value (time.Time{}) means "unlimited" when Disabled is false.
	Cutoff time.Time
}

// Gate maps heat to a Window, given the current time (injected for
// testability per §6's Clock.now() contract).
func Gate(heat float64, now time.Time) Window {
	switch {
	case heat < 0.1:
		return Window{Disabled: true}
	case heat < 0.3:
		return Window{Cutoff: now.AddDate(0, 0, -7)}
	case heat < 0.6:
		return Window{Cutoff: now.AddDate(0, 0, -30)}
	case heat < 0.8:
		return Window{Cutoff: now.AddDate(0, 0, -90)}
	default:
		return Window{} // unlimited: Disabled=false, Cutoff=zero value
	}
}
