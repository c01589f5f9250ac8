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
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"github.com/hearthai/cac/internal/cac/ctxerr"
	"github.com/hearthai/cac/internal/cac/types"
)

// className is the Weaviate class that holds every Memory across both
// pools; pool and the other scalar fields are stored as properties and
// filtered with a where clause rather than split across classes, since a
// single conversation's retrieval spans both pools in one Stage 1 call.
const className = "HearthMemory"

// WeaviateConfig configures the production vector store.
type WeaviateConfig struct {
	Scheme string // "http" or "https"
	Host   string // host:port
	APIKey string // optional; empty disables auth
}

// WeaviateStore is the production VectorStore adapter, backed by a Weaviate
// cluster reachable over its GraphQL API.
type WeaviateStore struct {
	client *weaviate.Client
	logger *slog.Logger
}

// NewWeaviateStore builds a client against the given cluster. It does not
// verify connectivity; callers that want a fail-fast startup check should
// call Search once against a known-empty query.
func NewWeaviateStore(cfg WeaviateConfig, logger *slog.Logger) (*WeaviateStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	wcfg := weaviate.Config{
		Host:   cfg.Host,
		Scheme: cfg.Scheme,
	}
	if cfg.APIKey != "" {
		wcfg.AuthConfig = weaviate.AuthApiKey{Value: cfg.APIKey}
	}
	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: build weaviate client: %w", err)
	}
	return &WeaviateStore{client: client, logger: logger}, nil
}

// Upsert writes a memory's content, metadata, and embedding vector as a
// Weaviate object keyed by the memory's own ID so re-indexing after a
// synthesis event is a plain overwrite rather than a delete-then-create.
func (s *WeaviateStore) Upsert(ctx context.Context, mem types.Memory) error {
	props := map[string]interface{}{
		"content":      mem.Content,
		"pool":         string(mem.Pool),
		"memoryType":   string(mem.Type),
		"domain":       string(mem.Domain),
		"emotion":      string(mem.Emotion),
		"heat":         mem.Heat,
		"intensity":    mem.Intensity,
		"validation":   string(mem.Validation),
		"durability":   string(mem.Durability),
		"createdAt":    mem.CreatedAt.Format(time.RFC3339),
		"accessCount":  mem.AccessCount,
	}

	_, err := s.client.Data().Creator().
		WithClassName(className).
		WithID(mem.ID).
		WithVector(toFloat32(mem.Embedding)).
		WithProperties(props).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("vectorstore: upsert %s: %w", mem.ID, ctxerr.Classify(err, ctxerr.StoreUnavailable))
	}
	return nil
}

// Search runs a nearVector GraphQL query scoped to the requested pool, with
// an optional createdAt lower bound for the temporal gate (§4.8).
func (s *WeaviateStore) Search(ctx context.Context, embedding types.Vector, opts SearchOptions) ([]types.Memory, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(toFloat32(embedding)).
		WithCertainty(thresholdToCertainty(opts.Threshold))

	where := filters.Where().
		WithPath([]string{"pool"}).
		WithOperator(filters.Equal).
		WithValueString(string(opts.Pool))

	if !opts.Cutoff.IsZero() {
		where = filters.Where().
			WithOperator(filters.And).
			WithOperands([]*filters.WhereBuilder{
				filters.Where().WithPath([]string{"pool"}).WithOperator(filters.Equal).WithValueString(string(opts.Pool)),
				filters.Where().WithPath([]string{"createdAt"}).WithOperator(filters.GreaterThanEqual).WithValueDate(opts.Cutoff),
			})
	}

	limit := opts.Max
	if limit <= 0 {
		limit = 15
	}

	fields := []graphql.Field{
		{Name: "content"}, {Name: "pool"}, {Name: "memoryType"}, {Name: "domain"},
		{Name: "emotion"}, {Name: "heat"}, {Name: "intensity"}, {Name: "validation"},
		{Name: "durability"}, {Name: "createdAt"}, {Name: "accessCount"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "id"}, {Name: "certainty"}, {Name: "vector"}}},
	}

	resp, err := s.client.GraphQL().Get().
		WithClassName(className).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithWhere(where).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: search: %w", ctxerr.Classify(err, ctxerr.SearchFailed))
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("vectorstore: search: %w: %v", ctxerr.SearchFailed, resp.Errors)
	}

	return parseSearchResponse(resp, opts.Pool, s.logger)
}

func thresholdToCertainty(threshold float64) float32 {
	// Weaviate's "certainty" is (cosine similarity + 1) / 2; the contract
	// elsewhere in this package works in raw cosine similarity.
	return float32((threshold + 1) / 2)
}

func toFloat32(v types.Vector) []float32 {
	return []float32(v)
}
