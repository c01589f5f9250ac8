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
	"context"
	"testing"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"github.com/hearthai/cac/internal/cac/types"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions(t.TempDir()).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	return db
}

func TestBadgerStoreAppendAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewBadgerStore(openTestDB(t), Config{}, nil)

	ev := types.PatternEvidence{PatternID: "p1", ObservedAt: time.Now(), Polarity: types.PolaritySupport, Strength: types.StrengthStrong}
	require.NoError(t, store.Append(ctx, ev))

	got, err := store.Load(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, types.StrengthStrong, got[0].Strength)
}

func TestBadgerStoreLoadUnknownPatternIsEmpty(t *testing.T) {
	store := NewBadgerStore(openTestDB(t), Config{}, nil)
	got, err := store.Load(context.Background(), "missing")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestBadgerStorePrunesByCount(t *testing.T) {
	ctx := context.Background()
	store := NewBadgerStore(openTestDB(t), Config{MaxPerPattern: 3}, nil)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, types.PatternEvidence{
			PatternID: "p1", ObservedAt: time.Now(), Polarity: types.PolaritySupport,
		}))
	}

	got, err := store.Load(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got, 3)
}

func TestBadgerStorePrunesByAge(t *testing.T) {
	ctx := context.Background()
	store := NewBadgerStore(openTestDB(t), Config{MaxAge: 24 * time.Hour}, nil)

	require.NoError(t, store.Append(ctx, types.PatternEvidence{
		PatternID: "p1", ObservedAt: time.Now().Add(-48 * time.Hour), Polarity: types.PolaritySupport,
	}))
	require.NoError(t, store.Append(ctx, types.PatternEvidence{
		PatternID: "p1", ObservedAt: time.Now(), Polarity: types.PolaritySupport,
	}))

	got, err := store.Load(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestBadgerStoreIsolatesPatterns(t *testing.T) {
	ctx := context.Background()
	store := NewBadgerStore(openTestDB(t), Config{}, nil)

	require.NoError(t, store.Append(ctx, types.PatternEvidence{PatternID: "p1", ObservedAt: time.Now()}))
	require.NoError(t, store.Append(ctx, types.PatternEvidence{PatternID: "p2", ObservedAt: time.Now()}))

	p1, err := store.Load(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, p1, 1)

	p2, err := store.Load(ctx, "p2")
	require.NoError(t, err)
	require.Len(t, p2, 1)
}

func TestBadgerStorePersistsAcrossReopens(t *testing.T) {
	dir := t.TempDir()
	opts := badger.DefaultOptions(dir).WithLogger(nil)

	db, err := badger.Open(opts)
	require.NoError(t, err)
	store := NewBadgerStore(db, Config{}, nil)
	require.NoError(t, store.Append(context.Background(), types.PatternEvidence{PatternID: "p1", ObservedAt: time.Now()}))
	require.NoError(t, db.Close())

	db2, err := badger.Open(opts)
	require.NoError(t, err)
	defer db2.Close()
	store2 := NewBadgerStore(db2, Config{}, nil)

	got, err := store2.Load(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestBadgerStoreDeleteRemovesPattern(t *testing.T) {
	ctx := context.Background()
	store := NewBadgerStore(openTestDB(t), Config{}, nil)

	require.NoError(t, store.Append(ctx, types.PatternEvidence{PatternID: "p1", ObservedAt: time.Now()}))
	require.NoError(t, store.Append(ctx, types.PatternEvidence{PatternID: "p2", ObservedAt: time.Now()}))

	require.NoError(t, store.Delete(ctx, "p1"))

	p1, err := store.Load(ctx, "p1")
	require.NoError(t, err)
	require.Empty(t, p1)

	p2, err := store.Load(ctx, "p2")
	require.NoError(t, err)
	require.Len(t, p2, 1)
}

func TestBadgerStoreDeleteUnknownPatternIsNotAnError(t *testing.T) {
	store := NewBadgerStore(openTestDB(t), Config{}, nil)
	require.NoError(t, store.Delete(context.Background(), "missing"))
}
