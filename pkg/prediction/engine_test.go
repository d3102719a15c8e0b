// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package prediction

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextread/nextread/pkg/rankingstore"
	"github.com/nextread/nextread/pkg/rankingstore/kv"
	"github.com/nextread/nextread/pkg/symbolindex"
)

func newTestEngine(t *testing.T) (*Engine, *rankingstore.Store) {
	t.Helper()
	backend, err := kv.Open(kv.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	store := rankingstore.New(backend)
	idx := symbolindex.New(t.TempDir())
	return NewEngine(store, idx, "proj"), store
}

func TestPredict_ColdStartWhenNoCandidates(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	result, err := engine.Predict(ctx, Request{Intent: "fix auth bug", Session: "s1"}, 1000)
	require.NoError(t, err)
	assert.Equal(t, "cold_start", result.Reason)
}

// TestPredict_BelowFloorWhenConfidenceTooLow exercises the threshold
// gate by seeding a reference max far above anything the single stale
// candidate here can score, so its confidence ratio necessarily falls
// under confidenceFloor.
func TestPredict_BelowFloorWhenConfidenceTooLow(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)
	require.NoError(t, store.RecordAccess(ctx, "proj", "a.go", nil, 0))

	engine.referenceMax["proj"] = refMax{value: 1000, updatedAt: 100_000}
	result, err := engine.Predict(ctx, Request{Session: "s1"}, 100_001)
	require.NoError(t, err)
	assert.Equal(t, "below_floor", result.Reason)
}

func TestPredict_CachesAndReturnsCachedFlagOnSecondCall(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)
	require.NoError(t, store.RecordAccess(ctx, "proj", "a.go", []string{"#authentication"}, 1000))

	first, err := engine.Predict(ctx, Request{Keywords: []string{"auth"}, Session: "s1"}, 1000)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := engine.Predict(ctx, Request{Keywords: []string{"auth"}, Session: "s1"}, 1000)
	require.NoError(t, err)
	assert.True(t, second.Cached)
}

func TestPredict_SnippetFetchOmitsOnReadErrorButKeepsPath(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "present.go"), []byte("package main\n"), 0o644))

	backend, err := kv.Open(kv.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	store := rankingstore.New(backend)
	idx := symbolindex.New(root)
	engine := NewEngine(store, idx, "proj")

	require.NoError(t, store.RecordAccess(ctx, "proj", "present.go", nil, 1000))
	require.NoError(t, store.RecordAccess(ctx, "proj", "missing.go", nil, 1000))

	result, err := engine.Predict(ctx, Request{Session: "s1", WithSnippets: true, SnippetLines: 5}, 1000)
	require.NoError(t, err)
	require.NotEmpty(t, result.Files)
	for _, f := range result.Files {
		if f.Path == "missing.go" {
			assert.Empty(t, f.Snippet)
		}
	}
}

func TestResolveAccess_ResolvesFirstMatchingPredictionAsHit(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)
	require.NoError(t, store.RecordAccess(ctx, "proj", "a.go", []string{"#api"}, 1000))

	_, err := engine.Predict(ctx, Request{Keywords: []string{"api"}, Session: "s1"}, 1000)
	require.NoError(t, err)

	hit, err := engine.ResolveAccess(ctx, "s1", "a.go", 1001)
	require.NoError(t, err)
	assert.True(t, hit)

	hit, err = engine.ResolveAccess(ctx, "s1", "a.go", 1002)
	require.NoError(t, err)
	assert.False(t, hit, "second access to the same path must not re-resolve the already-resolved prediction")
}

func TestFinalizeStale_ResolvesOldUnresolvedPredictions(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)
	require.NoError(t, store.RecordAccess(ctx, "proj", "a.go", []string{"#api"}, 0))

	_, err := engine.Predict(ctx, Request{Keywords: []string{"api"}, Session: "s1"}, 0)
	require.NoError(t, err)

	n, err := engine.FinalizeStale(ctx, finalizeGraceSeconds+1000)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUpdateReferenceMax_DecaysTowardNewCandidateOverTime(t *testing.T) {
	engine, _ := newTestEngine(t)

	first := engine.updateReferenceMax(0, 10)
	assert.Equal(t, 10.0, first)

	decayed := engine.updateReferenceMax(referenceMaxHalfLife, 0)
	assert.InDelta(t, 5.0, decayed, 1e-6)
}
