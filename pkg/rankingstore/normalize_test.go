// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package rankingstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecencySignal_DecaysByHalfEveryHour(t *testing.T) {
	now := int64(10_000)
	fresh := recencySignal(now, now)
	oneHourOld := recencySignal(now, now-recencyHalfLife)
	twoHoursOld := recencySignal(now, now-2*recencyHalfLife)

	assert.InDelta(t, 1.0, fresh, 1e-9)
	assert.InDelta(t, 0.5, oneHourOld, 1e-9)
	assert.InDelta(t, 0.25, twoHoursOld, 1e-9)
}

func TestRecencySignal_ClampedToUnitInterval(t *testing.T) {
	assert.LessOrEqual(t, recencySignal(100, 100), 1.0)
	assert.GreaterOrEqual(t, recencySignal(100, -1_000_000), 0.0)
}

func TestFrequencySignal_MonotonicAndBounded(t *testing.T) {
	low := frequencySignal(1)
	mid := frequencySignal(10)
	high := frequencySignal(1000)

	assert.Less(t, low, mid)
	assert.Less(t, mid, high)
	assert.LessOrEqual(t, high, 1.0)
	assert.GreaterOrEqual(t, low, 0.0)
}

func TestTagSignal_ZeroWhenNoMaxInSet(t *testing.T) {
	assert.Equal(t, 0.0, tagSignal(5, 0))
}

func TestTagSignal_NormalizesAgainstMax(t *testing.T) {
	assert.InDelta(t, 0.5, tagSignal(5, 10), 1e-9)
	assert.InDelta(t, 1.0, tagSignal(10, 10), 1e-9)
}

func TestTransitionSignal_ZeroWhenNoOriginMass(t *testing.T) {
	assert.Equal(t, 0.0, transitionSignal(3, 0))
}
