// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestZUpsert_ThenZScore(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.ZUpsert(ctx, "recency", "a.go", 42))
	score, err := s.ZScore(ctx, "recency", "a.go")
	require.NoError(t, err)
	assert.Equal(t, float64(42), score)
}

func TestZUpsert_Reupsert_MovesIndexEntry(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.ZUpsert(ctx, "recency", "a.go", 1))
	require.NoError(t, s.ZUpsert(ctx, "recency", "a.go", 99))

	top, err := s.ZTop(ctx, "recency", 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, float64(99), top[0].Score)
}

func TestZIncrBy_Accumulates(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	n, err := s.ZIncrBy(ctx, "frequency", "a.go", 1)
	require.NoError(t, err)
	assert.Equal(t, float64(1), n)

	n, err = s.ZIncrBy(ctx, "frequency", "a.go", 1)
	require.NoError(t, err)
	assert.Equal(t, float64(2), n)
}

func TestZTop_DescendingByScore(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.ZUpsert(ctx, "set", "low", 1))
	require.NoError(t, s.ZUpsert(ctx, "set", "high", 100))
	require.NoError(t, s.ZUpsert(ctx, "set", "mid", 50))

	top, err := s.ZTop(ctx, "set", 10)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "high", top[0].Key)
	assert.Equal(t, "mid", top[1].Key)
	assert.Equal(t, "low", top[2].Key)
}

func TestZTop_NegativeScores(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.ZUpsert(ctx, "set", "neg", -5))
	require.NoError(t, s.ZUpsert(ctx, "set", "pos", 5))

	top, err := s.ZTop(ctx, "set", 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "pos", top[0].Key)
	assert.Equal(t, "neg", top[1].Key)
}

func TestZTrimToTop_RemovesOutsideTopN(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.ZUpsert(ctx, "trans:a", string(rune('a'+i)), float64(i)))
	}
	require.NoError(t, s.ZTrimToTop(ctx, "trans:a", 2))

	card, err := s.ZCard(ctx, "trans:a")
	require.NoError(t, err)
	assert.Equal(t, 2, card)
}

func TestZRangeByScore_FiltersToRange(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.ZUpsert(ctx, "preds", "p1", 10))
	require.NoError(t, s.ZUpsert(ctx, "preds", "p2", 20))
	require.NoError(t, s.ZUpsert(ctx, "preds", "p3", 30))

	members, err := s.ZRangeByScore(ctx, "preds", 15, 25)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "p2", members[0].Key)
}

func TestZRem_DropsMemberFromBothIndexes(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.ZUpsert(ctx, "set", "a", 1))
	require.NoError(t, s.ZRem(ctx, "set", "a"))

	_, err := s.ZScore(ctx, "set", "a")
	assert.ErrorIs(t, err, ErrNotFound)

	top, err := s.ZTop(ctx, "set", 10)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestSAdd_SMembers(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.SAdd(ctx, "tags:a.go", "auth"))
	require.NoError(t, s.SAdd(ctx, "tags:a.go", "backend"))

	members, err := s.SMembers(ctx, "tags:a.go")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"auth", "backend"}, members)
}

func TestHSet_HGetAll_MergesFields(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.HSet(ctx, "pred:1", map[string]string{"session": "s1"}))
	require.NoError(t, s.HSet(ctx, "pred:1", map[string]string{"hit": "true"}))

	fields, err := s.HGetAll(ctx, "pred:1")
	require.NoError(t, err)
	assert.Equal(t, "s1", fields["session"])
	assert.Equal(t, "true", fields["hit"])
}

func TestHGetAll_MissingKeyReturnsEmptyMap(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	fields, err := s.HGetAll(ctx, "pred:missing")
	require.NoError(t, err)
	assert.Empty(t, fields)
}
