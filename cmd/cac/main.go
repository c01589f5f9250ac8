// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command cac runs the Context Assembly Core: it wires the embedder,
// vector store, evidence store, and (optionally) a chat model into an
// Orchestrator, then either serves it over HTTP or drives it once from
// the command line.
//
// Usage:
//
//	cac serve
//	cac serve --port 9090
//	cac assemble --message "thinking about the new job again" --user u1
//	cac invalidate-cache
//
// Vector store backend (default: in-memory):
//
//	CAC_WEAVIATE_HOST=localhost:8090 cac serve
//
// Evidence store backend (default: in-memory):
//
//	CAC_EVIDENCE_DB=/var/lib/cac/evidence cac serve
//
// Stage 2/3 (surprise rerank, reframe) require an OpenAI-compatible chat
// model. Without OPENAI_API_KEY set, the orchestrator degrades to
// Stage-1-only retrieval permanently rather than failing to start:
//
//	OPENAI_API_KEY=sk-... OPENAI_MODEL=gpt-4o-mini cac serve
//
// Identity (the operating specification injected into every prefix):
//
//	CAC_IDENTITY_FILE=/etc/cac/identity.yaml cac serve
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/hearthai/cac/internal/cac/config"
	"github.com/hearthai/cac/internal/cac/embedding"
	"github.com/hearthai/cac/internal/cac/evidence"
	"github.com/hearthai/cac/internal/cac/identity"
	"github.com/hearthai/cac/internal/cac/llm"
	"github.com/hearthai/cac/internal/cac/orchestrator"
	"github.com/hearthai/cac/internal/cac/vectorstore"
)

var rootCmd = &cobra.Command{
	Use:   "cac",
	Short: "Context Assembly Core: per-turn memory retrieval and prefix injection for Hearth",
}

func main() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(assembleCmd)
	rootCmd.AddCommand(invalidateCacheCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// buildOrchestrator loads the scoring registry and identity spec, wires an
// embedder, vector store, evidence store, and optional chat model, and
// returns a ready Orchestrator. Every optional backend degrades
// gracefully: a missing credential or unreachable service logs a warning
// and falls back to the in-memory/disabled equivalent rather than failing
// startup.
func buildOrchestrator(logger *slog.Logger) (*orchestrator.Orchestrator, func(), error) {
	reg, err := config.Load()
	if err != nil {
		return nil, func() {}, fmt.Errorf("load scoring registry: %w", err)
	}

	idSpec, err := identity.Load(os.Getenv("CAC_IDENTITY_FILE"))
	if err != nil {
		return nil, func() {}, fmt.Errorf("load identity: %w", err)
	}

	embedder := embedding.NewHTTPClient(logger)
	store := buildVectorStore(logger)
	evidenceStore, closeEvidence := buildEvidenceStore(reg, logger)
	chat := buildChat(logger)

	orch, err := orchestrator.New(orchestrator.Dependencies{
		Registry:      reg,
		Logger:        logger,
		Identity:      idSpec,
		Embedder:      embedder,
		Store:         store,
		Chat:          chat,
		EvidenceStore: evidenceStore,
	})
	if err != nil {
		closeEvidence()
		return nil, func() {}, fmt.Errorf("build orchestrator: %w", err)
	}

	closer := closeEvidence
	if identityFile := os.Getenv("CAC_IDENTITY_FILE"); identityFile != "" {
		watcher, err := identity.Watch(identityFile, logger, orch.SetIdentity)
		if err != nil {
			logger.Warn("identity: hot-reload watch unavailable, spec is fixed for this process",
				slog.String("path", identityFile), slog.String("error", err.Error()))
		} else {
			closer = func() {
				_ = watcher.Close()
				closeEvidence()
			}
		}
	}
	return orch, closer, nil
}

// buildVectorStore opens a Weaviate-backed store when CAC_WEAVIATE_HOST is
// set, falling back to an in-memory store (with a warning) if the client
// can't be constructed, and to in-memory outright when unset.
func buildVectorStore(logger *slog.Logger) vectorstore.VectorStore {
	host := os.Getenv("CAC_WEAVIATE_HOST")
	if host == "" {
		return vectorstore.NewMemoryStore()
	}
	scheme := os.Getenv("CAC_WEAVIATE_SCHEME")
	if scheme == "" {
		scheme = "http"
	}
	store, err := vectorstore.NewWeaviateStore(vectorstore.WeaviateConfig{
		Scheme: scheme,
		Host:   host,
		APIKey: os.Getenv("CAC_WEAVIATE_API_KEY"),
	}, logger)
	if err != nil {
		logger.Warn("weaviate store unavailable, falling back to in-memory", slog.String("error", err.Error()))
		return vectorstore.NewMemoryStore()
	}
	return store
}

// buildEvidenceStore opens a BadgerDB-backed evidence store when
// CAC_EVIDENCE_DB is set, falling back to an in-memory store (with a
// warning) on open failure. The returned closer must be called on
// shutdown; it is a no-op for the in-memory store.
func buildEvidenceStore(reg *config.Registry, logger *slog.Logger) (evidence.Store, func()) {
	cfg := evidence.Config{
		MaxPerPattern: reg.Scoring.Evidence.MaxPerPattern,
		MaxAge:        time.Duration(reg.Scoring.Evidence.MaxAgeDays) * 24 * time.Hour,
	}

	dbPath := os.Getenv("CAC_EVIDENCE_DB")
	if dbPath == "" {
		return evidence.NewMemoryStore(cfg), func() {}
	}

	opts := badger.DefaultOptions(dbPath).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		logger.Warn("evidence BadgerDB unavailable, falling back to in-memory",
			slog.String("path", dbPath), slog.String("error", err.Error()))
		return evidence.NewMemoryStore(cfg), func() {}
	}
	logger.Info("evidence BadgerDB opened", slog.String("path", dbPath))
	store := evidence.NewBadgerStore(db, cfg, logger)
	return store, func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close evidence BadgerDB", slog.String("error", err.Error()))
		}
	}
}

// buildChat constructs an OpenAI chat client when OPENAI_API_KEY is set.
// Returns nil otherwise — Orchestrator.New treats a nil Chat as "Stage
// 2/3 permanently disabled", not an error.
func buildChat(logger *slog.Logger) llm.Chat {
	client, err := llm.NewOpenAIClient(os.Getenv("OPENAI_MODEL"), logger)
	if err != nil {
		logger.Info("chat model unavailable, surprise rerank and reframe disabled", slog.String("reason", err.Error()))
		return nil
	}
	return client
}
