// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package prediction

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextread/nextread/pkg/rankingstore"
	"github.com/nextread/nextread/pkg/rankingstore/kv"
)

func newTestTuner(t *testing.T) *Tuner {
	t.Helper()
	backend, err := kv.Open(kv.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	return NewTuner(rankingstore.New(backend), "proj")
}

func TestSelectArm_ReturnsValidIndexAndWeights(t *testing.T) {
	ctx := context.Background()
	tuner := newTestTuner(t)

	sel, err := tuner.SelectArm(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, sel.Index, 0)
	assert.Less(t, sel.Index, NumArms)
	assert.Equal(t, arms[sel.Index].Recency, sel.Weights.Recency)
}

func TestBestArm_PrefersArmWithHigherPosteriorMean(t *testing.T) {
	ctx := context.Background()
	tuner := newTestTuner(t)

	for i := 0; i < 20; i++ {
		require.NoError(t, tuner.UpdateArm(ctx, 3, true))
	}
	for i := 0; i < 20; i++ {
		require.NoError(t, tuner.UpdateArm(ctx, 5, false))
	}

	best, err := tuner.BestArm(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, best.Index)
}

func TestUpdateArm_PersistsThroughStore(t *testing.T) {
	ctx := context.Background()
	tuner := newTestTuner(t)

	require.NoError(t, tuner.UpdateArm(ctx, 0, true))
	stats, err := tuner.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2.0, stats[0].State.Alpha)
	assert.Equal(t, 1.0, stats[0].State.Beta)
}

func TestResetArms_RestoresUniformPriorAcrossAllArms(t *testing.T) {
	ctx := context.Background()
	tuner := newTestTuner(t)

	require.NoError(t, tuner.UpdateArm(ctx, 2, true))
	require.NoError(t, tuner.ResetArms(ctx))

	stats, err := tuner.Stats(ctx)
	require.NoError(t, err)
	for _, r := range stats {
		assert.Equal(t, 1.0, r.State.Alpha)
		assert.Equal(t, 1.0, r.State.Beta)
	}
}

func TestSampleBeta_RangeIsUnitInterval(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		v := sampleBeta(rng, 2, 5)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}
