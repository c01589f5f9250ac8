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
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/hearthai/cac/internal/cac/types"
)

// evidenceKeyPrefix namespaces pattern-evidence keys within a shared
// BadgerDB instance, a versioned-prefix convention that keeps future key
// formats migratable without touching unrelated keys.
const evidenceKeyPrefix = "cac/evidence/v1/"

// BadgerStore persists pattern evidence in a BadgerDB instance. Evidence
// does not expire via BadgerDB TTL — §4.13's age buckets need exact
// ObservedAt timestamps, so pruning happens in application code on every
// Append instead.
type BadgerStore struct {
	db     *badger.DB
	cfg    Config
	logger *slog.Logger

	// writeLocks serializes Append calls per pattern so prune-then-write is
	// atomic even though BadgerDB transactions are per-goroutine.
	mu         sync.Mutex
	writeLocks map[string]*sync.Mutex
}

// NewBadgerStore builds a BadgerStore backed by an already-opened DB. The
// caller owns the DB's lifecycle.
func NewBadgerStore(db *badger.DB, cfg Config, logger *slog.Logger) *BadgerStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &BadgerStore{db: db, cfg: cfg.normalized(), logger: logger, writeLocks: make(map[string]*sync.Mutex)}
}

func (s *BadgerStore) lockFor(patternID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.writeLocks[patternID]
	if !ok {
		l = &sync.Mutex{}
		s.writeLocks[patternID] = l
	}
	return l
}

// Append loads the pattern's current evidence, appends ev, prunes, and
// writes the result back. Serialized per pattern ID to avoid a lost update
// between two concurrent Append calls for the same pattern.
func (s *BadgerStore) Append(ctx context.Context, ev types.PatternEvidence) error {
	lock := s.lockFor(ev.PatternID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.Load(ctx, ev.PatternID)
	if err != nil {
		return fmt.Errorf("evidence: append: load existing: %w", err)
	}
	updated := prune(append(existing, ev), s.cfg, time.Now())

	raw, err := gobEncode(updated)
	if err != nil {
		return fmt.Errorf("evidence: append: encode: %w", err)
	}

	key := evidenceKey(ev.PatternID)
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, raw)
	})
	if err != nil {
		return fmt.Errorf("evidence: append: write: %w", err)
	}
	return nil
}

// Load returns the pattern's retained evidence, or an empty slice if no
// record has ever been written for it.
func (s *BadgerStore) Load(_ context.Context, patternID string) ([]types.PatternEvidence, error) {
	key := evidenceKey(patternID)

	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("evidence: load %s: %w", patternID, err)
	}
	if raw == nil {
		return nil, nil
	}

	records, err := gobDecode(raw)
	if err != nil {
		return nil, fmt.Errorf("evidence: decode %s: %w", patternID, err)
	}
	return records, nil
}

// Delete removes the pattern's evidence record entirely. Serialized through
// the same per-pattern lock Append uses so a concurrent Append can't
// resurrect a record this call is in the middle of removing. Deleting an
// already-absent key is not an error — BadgerDB's Delete is idempotent.
func (s *BadgerStore) Delete(_ context.Context, patternID string) error {
	lock := s.lockFor(patternID)
	lock.Lock()
	defer lock.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(evidenceKey(patternID))
	})
	if err != nil {
		return fmt.Errorf("evidence: delete %s: %w", patternID, err)
	}
	return nil
}

func evidenceKey(patternID string) []byte {
	return []byte(evidenceKeyPrefix + patternID)
}

func gobEncode(records []types.PatternEvidence) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gobDecode(raw []byte) ([]types.PatternEvidence, error) {
	var records []types.PatternEvidence
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}
