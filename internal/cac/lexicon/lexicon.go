// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package lexicon compiles the regex tables loaded by package config into
// ready-to-match regexp2 expressions, once, at startup. regexp2 (rather
// than stdlib regexp) is used so that table entries may use lookaround,
// which RE2 cannot express (Design Notes §9:
// "Regex lexicons: data-driven tables. Compile once; never rebuild
// per-message.").
package lexicon

import (
	"fmt"

	"github.com/dlclark/regexp2"
)

// Set is a compiled, named group of patterns matched as "any of these hit".
type Set struct {
	patterns []*regexp2.Regexp
}

// Compile builds a Set from raw pattern strings. Case-insensitive: the
// lexicons describe natural-language phrases, and callers should not have
// to track the casing convention of every entry.
func Compile(patterns []string) (*Set, error) {
	compiled := make([]*regexp2.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp2.Compile(p, regexp2.IgnoreCase)
		if err != nil {
			return nil, fmt.Errorf("lexicon: compile pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return &Set{patterns: compiled}, nil
}

// MustCompile panics on a malformed pattern. Only used at package init time
// for tables that are themselves compiled into the binary via go:embed,
// where a bad pattern is a build-time defect, not a runtime condition.
func MustCompile(patterns []string) *Set {
	s, err := Compile(patterns)
	if err != nil {
		panic(err)
	}
	return s
}

// MatchAny reports whether any pattern in the set matches text.
func (s *Set) MatchAny(text string) bool {
	if s == nil {
		return false
	}
	for _, re := range s.patterns {
		if ok, _ := re.MatchString(text); ok {
			return true
		}
	}
	return false
}

// CountMatches returns the number of patterns in the set that match text at
// least once (not the total occurrence count — one point per pattern).
func (s *Set) CountMatches(text string) int {
	if s == nil {
		return 0
	}
	n := 0
	for _, re := range s.patterns {
		if ok, _ := re.MatchString(text); ok {
			n++
		}
	}
	return n
}

// FindAllMatches returns the number of non-overlapping occurrences of a
// single pattern across the whole set, summed — used where strength scales
// with raw match volume (e.g. Scout contradiction strength).
func (s *Set) FindAllMatches(text string) int {
	if s == nil {
		return 0
	}
	total := 0
	for _, re := range s.patterns {
		m, _ := re.FindStringMatch(text)
		for m != nil {
			total++
			m, _ = re.FindNextMatch(m)
		}
	}
	return total
}
