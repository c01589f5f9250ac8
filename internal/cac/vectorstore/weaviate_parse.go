// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package vectorstore

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"github.com/hearthai/cac/internal/cac/types"
)

// parseSearchResponse walks the GraphQL Get{HearthMemory{...}} payload into
// typed Memory values. Weaviate's Go client returns arbitrary
// map[string]interface{} for Get results, so this does defensive
// type-switching over the untyped JSON blob.
func parseSearchResponse(resp *graphql.GraphQLResponse, pool types.Pool, logger *slog.Logger) ([]types.Memory, error) {
	getField, ok := resp.Data["Get"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	rows, ok := getField[className].([]interface{})
	if !ok {
		return nil, nil
	}

	memories := make([]types.Memory, 0, len(rows))
	for _, row := range rows {
		obj, ok := row.(map[string]interface{})
		if !ok {
			continue
		}
		mem, err := memoryFromObject(obj, pool)
		if err != nil {
			logger.Warn("vectorstore: skipping malformed search result", "err", err)
			continue
		}
		memories = append(memories, mem)
	}
	return memories, nil
}

func memoryFromObject(obj map[string]interface{}, pool types.Pool) (types.Memory, error) {
	additional, _ := obj["_additional"].(map[string]interface{})
	id, _ := additional["id"].(string)
	if id == "" {
		return types.Memory{}, fmt.Errorf("search result missing _additional.id")
	}

	mem := types.Memory{
		ID:         id,
		Content:    stringField(obj, "content"),
		Pool:       pool,
		Type:       types.MemoryType(stringField(obj, "memoryType")),
		Domain:     types.Domain(stringField(obj, "domain")),
		Emotion:    types.Emotion(stringField(obj, "emotion")),
		Heat:       floatField(obj, "heat"),
		Intensity:  floatField(obj, "intensity"),
		Validation: types.Validation(stringField(obj, "validation")),
		Durability: types.Durability(stringField(obj, "durability")),
	}

	if created := stringField(obj, "createdAt"); created != "" {
		if t, err := time.Parse(time.RFC3339, created); err == nil {
			mem.CreatedAt = t
		}
	}
	if certainty, ok := additional["certainty"].(float64); ok {
		mem.Similarity = certainty*2 - 1
	}

	return mem, nil
}

func stringField(obj map[string]interface{}, key string) string {
	s, _ := obj[key].(string)
	return s
}

func floatField(obj map[string]interface{}, key string) float64 {
	f, _ := obj[key].(float64)
	return f
}
