// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package rankingstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextread/nextread/pkg/rankingstore/kv"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	backend, err := kv.Open(kv.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	return New(backend)
}

func TestRecordAccess_UpsertsRecencyAndIncrementsFrequency(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.RecordAccess(ctx, "proj", "a.go", []string{"auth"}, 100))
	require.NoError(t, s.RecordAccess(ctx, "proj", "a.go", []string{"auth"}, 200))

	last, ok, err := s.LastAccess(ctx, "proj", "a.go")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(200), last)

	top, err := s.TopByTag(ctx, "proj", "auth", 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, float64(2), top[0].Score)
}

func TestRecordAccess_IsolatesByProject(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.RecordAccess(ctx, "proj-a", "a.go", nil, 1))
	_, ok, err := s.LastAccess(ctx, "proj-b", "a.go")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordTransition_SkipsSelfTransitionAndOutOfWindow(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.RecordAccess(ctx, "proj", "a.go", nil, 0))
	require.NoError(t, s.RecordTransition(ctx, "proj", "a.go", "a.go", 10))
	require.NoError(t, s.RecordTransition(ctx, "proj", "a.go", "b.go", transitionWindowSeconds+1000))

	top, err := s.TransitionsFrom(ctx, "proj", "a.go", 10)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestRecordTransition_RecordsWithinWindow(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.RecordAccess(ctx, "proj", "a.go", nil, 0))
	require.NoError(t, s.RecordTransition(ctx, "proj", "a.go", "b.go", 5))

	top, err := s.TransitionsFrom(ctx, "proj", "a.go", 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "b.go", top[0].Key)
}

func TestRecordTransition_CapsToTopN(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.RecordAccess(ctx, "proj", "a.go", nil, 0))

	for i := 0; i < maxTransitionsPerOrigin+10; i++ {
		to := string(rune('a'+i%26)) + itoa(int64(i))
		require.NoError(t, s.RecordTransition(ctx, "proj", "a.go", to, 1))
	}

	top, err := s.TransitionsFrom(ctx, "proj", "a.go", 0)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(top), maxTransitionsPerOrigin)
}

// TestTopComposite_RecencyDominatesForFreshAccess exercises the
// universal invariant that an otherwise-equal candidate with a more
// recent access always outranks a stale one under a recency-heavy
// weight vector.
func TestTopComposite_RecencyDominatesForFreshAccess(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := int64(100_000)

	require.NoError(t, s.RecordAccess(ctx, "proj", "fresh.go", nil, now))
	require.NoError(t, s.RecordAccess(ctx, "proj", "stale.go", nil, now-10*recencyHalfLife))

	weights := Weights{Recency: 1.0}
	details, err := s.TopComposite(ctx, "proj", nil, weights, "", 10, now)
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, "fresh.go", details[0].Path)
}

func TestTopComposite_TagSignalDominatesUnderTagHeavyWeights(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := int64(100_000)

	require.NoError(t, s.RecordAccess(ctx, "proj", "tagged.go", []string{"auth"}, now-10*recencyHalfLife))
	require.NoError(t, s.RecordAccess(ctx, "proj", "untagged.go", nil, now))

	weights := Weights{Tag: 1.0}
	details, err := s.TopComposite(ctx, "proj", []string{"auth"}, weights, "", 10, now)
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, "tagged.go", details[0].Path)
}

func TestTopComposite_CompositeStableUnderRepeatedCalls(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := int64(100_000)

	require.NoError(t, s.RecordAccess(ctx, "proj", "a.go", []string{"auth"}, now))
	require.NoError(t, s.RecordAccess(ctx, "proj", "b.go", []string{"auth"}, now-500))

	weights := Weights{Recency: 0.4, Frequency: 0.3, Tag: 0.3}
	first, err := s.TopComposite(ctx, "proj", []string{"auth"}, weights, "", 10, now)
	require.NoError(t, err)
	second, err := s.TopComposite(ctx, "proj", []string{"auth"}, weights, "", 10, now)
	require.NoError(t, err)

	require.Len(t, first, len(second))
	for i := range first {
		assert.Equal(t, first[i].Path, second[i].Path)
		assert.InDelta(t, first[i].Composite, second[i].Composite, 1e-12)
	}
}

func TestTopComposite_TransitionSignalScoredFromAnchor(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := int64(100_000)

	require.NoError(t, s.RecordAccess(ctx, "proj", "anchor.go", nil, now))
	require.NoError(t, s.RecordTransition(ctx, "proj", "anchor.go", "dest.go", now))

	weights := Weights{Recency: 0.4, Frequency: 0.3, Tag: 0.1, Trans: 0.2}
	details, err := s.TopComposite(ctx, "proj", nil, weights, "anchor.go", 10, now)
	require.NoError(t, err)

	var destDetail *CompositeDetail
	for i := range details {
		if details[i].Path == "dest.go" {
			destDetail = &details[i]
		}
	}
	require.NotNil(t, destDetail)
	assert.Greater(t, destDetail.Transition, 0.0)
}

func TestLogPrediction_ResolveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec := PredictionRecord{ID: "p1", Session: "s1", Candidates: []string{"a.go"}, CreatedAt: 100}
	require.NoError(t, s.LogPrediction(ctx, "proj", rec))

	require.NoError(t, s.ResolvePrediction(ctx, "proj", "p1", true))
	require.NoError(t, s.ResolvePrediction(ctx, "proj", "p1", false))

	got, ok, err := s.GetPrediction(ctx, "proj", "p1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Hit) // second resolve must not overwrite the first
}

func TestFinalizeStale_ResolvesOldUnresolvedAsMiss(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.LogPrediction(ctx, "proj", PredictionRecord{ID: "p1", CreatedAt: 0}))
	n, err := s.FinalizeStale(ctx, "proj", 1000, 300)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, ok, err := s.GetPrediction(ctx, "proj", "p1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Resolved)
	assert.False(t, got.Hit)
}

func TestUpdateArm_IncrementsAlphaOnHitBetaOnMiss(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.UpdateArm(ctx, "proj", 0, true))
	require.NoError(t, s.UpdateArm(ctx, "proj", 0, false))

	states, err := s.ArmStates(ctx, "proj", 1)
	require.NoError(t, err)
	assert.Equal(t, 2.0, states[0].Alpha)
	assert.Equal(t, 2.0, states[0].Beta)
}

func TestUpdateArm_OverflowRescalesBothFieldsPreservingRatio(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	const startAlpha = armOverflowCap - 0.5
	const startBeta = 250000.0
	require.NoError(t, s.kv.HSet(ctx, armKey("proj", 0), map[string]string{
		"alpha": formatFloat(startAlpha),
		"beta":  formatFloat(startBeta),
	}))

	require.NoError(t, s.UpdateArm(ctx, "proj", 0, true))

	preScaleAlpha, preScaleBeta := startAlpha+1, startBeta
	wantRatio := preScaleAlpha / preScaleBeta

	states, err := s.ArmStates(ctx, "proj", 1)
	require.NoError(t, err)
	assert.LessOrEqual(t, states[0].Alpha, armOverflowCap+1e-9)
	assert.InDelta(t, wantRatio, states[0].Alpha/states[0].Beta, 1e-9)
}

func TestResetArms_RestoresUniformPrior(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.UpdateArm(ctx, "proj", 2, true))
	require.NoError(t, s.ResetArms(ctx, "proj", 8))

	states, err := s.ArmStates(ctx, "proj", 8)
	require.NoError(t, err)
	for _, st := range states {
		assert.Equal(t, 1.0, st.Alpha)
		assert.Equal(t, 1.0, st.Beta)
	}
}
