// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package prediction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntentCache_PutThenGetWithinTTL(t *testing.T) {
	c := NewIntentCache()
	c.Put("proj", "auth|login", Result{TopConfidence: 0.8}, 1000)

	got, ok := c.Get("proj", "auth|login", 1000+int64(intentCacheTTL.Seconds())-1)
	assert.True(t, ok)
	assert.Equal(t, 0.8, got.TopConfidence)
}

func TestIntentCache_GetAfterTTLExpiresReturnsNotOK(t *testing.T) {
	c := NewIntentCache()
	c.Put("proj", "auth|login", Result{TopConfidence: 0.8}, 1000)

	_, ok := c.Get("proj", "auth|login", 1000+int64(intentCacheTTL.Seconds())+1)
	assert.False(t, ok)
}

func TestIntentCache_IsolatesByProject(t *testing.T) {
	c := NewIntentCache()
	c.Put("proj-a", "auth", Result{TopConfidence: 0.9}, 1000)

	_, ok := c.Get("proj-b", "auth", 1000)
	assert.False(t, ok)
}

func TestIntentCache_InvalidateDropsEntry(t *testing.T) {
	c := NewIntentCache()
	c.Put("proj", "auth", Result{TopConfidence: 0.9}, 1000)
	c.Invalidate("proj", "auth")

	_, ok := c.Get("proj", "auth", 1000)
	assert.False(t, ok)
}

func TestIntentCache_LenTracksEntryCount(t *testing.T) {
	c := NewIntentCache()
	assert.Equal(t, 0, c.Len())
	c.Put("proj", "a", Result{}, 1000)
	c.Put("proj", "b", Result{}, 1000)
	assert.Equal(t, 2, c.Len())
}
