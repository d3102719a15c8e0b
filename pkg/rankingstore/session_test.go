// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package rankingstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendToSequence_LastInSequenceReturnsMostRecent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.AppendToSequence(ctx, "proj", "sess", "a.go", 1))
	require.NoError(t, s.AppendToSequence(ctx, "proj", "sess", "b.go", 2))

	last, ok, err := s.LastInSequence(ctx, "proj", "sess", 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b.go", last)
}

func TestLastInSequence_ExpiredSessionReturnsNotOK(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.AppendToSequence(ctx, "proj", "sess", "a.go", 0))
	_, ok, err := s.LastInSequence(ctx, "proj", "sess", sessionTTLSeconds+1000)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPurgeExpiredSessions_RemovesOnlyExpired(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.AppendToSequence(ctx, "proj", "old", "a.go", 0))
	require.NoError(t, s.AppendToSequence(ctx, "proj", "fresh", "b.go", sessionTTLSeconds))

	n, err := s.PurgeExpiredSessions(ctx, "proj", []string{"old", "fresh"}, sessionTTLSeconds+1000)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok, err := s.LastInSequence(ctx, "proj", "fresh", sessionTTLSeconds+1000)
	require.NoError(t, err)
	assert.True(t, ok)
}
