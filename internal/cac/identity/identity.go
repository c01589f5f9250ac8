// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package identity loads the operating specification (§2's IdentitySpec)
// from an external YAML file. Unlike the scoring/lexicon tables in config,
// which are fixed at build time, the identity is deployment-specific — a
// different Hearth instance carries a different voice — so it is read from
// disk rather than embedded, the same way role and provider configuration
// is kept external to the binary.
package identity

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hearthai/cac/internal/cac/types"
)

// Document is the on-disk YAML shape for an IdentitySpec.
type Document struct {
	Identity              string   `yaml:"identity"`
	CognitiveArchitecture string   `yaml:"cognitive_architecture"`
	Communication         string   `yaml:"communication"`
	Execution             string   `yaml:"execution"`
	Constraints           []string `yaml:"constraints"`
	BalanceProtocol       string   `yaml:"balance_protocol"`
	Appendix              string   `yaml:"appendix"`
}

func (d Document) toSpec() types.IdentitySpec {
	return types.IdentitySpec{
		Identity:              d.Identity,
		CognitiveArchitecture: d.CognitiveArchitecture,
		Communication:         d.Communication,
		Execution:             d.Execution,
		Constraints:           d.Constraints,
		BalanceProtocol:       d.BalanceProtocol,
		Appendix:              d.Appendix,
	}
}

// Default is the minimal identity used when no file is configured. It is
// enough for composition to produce a well-formed [HEARTH OPERATING
// SPECIFICATION] section (§2) but carries none of a deployment's voice.
var Default = types.IdentitySpec{
	Identity: "You are Hearth, a conversational AI with persistent memory across sessions.",
}

// Load reads an IdentitySpec from path. An empty path returns Default
// without touching the filesystem, so callers that never configured a file
// don't need to special-case it.
func Load(path string) (types.IdentitySpec, error) {
	if path == "" {
		return Default, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return types.IdentitySpec{}, fmt.Errorf("identity: read %s: %w", path, err)
	}
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return types.IdentitySpec{}, fmt.Errorf("identity: parse %s: %w", path, err)
	}
	return doc.toSpec(), nil
}
