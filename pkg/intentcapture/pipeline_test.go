// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package intentcapture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextread/nextread/pkg/prediction"
	"github.com/nextread/nextread/pkg/rankingstore"
	"github.com/nextread/nextread/pkg/rankingstore/kv"
	"github.com/nextread/nextread/pkg/symbolindex"
)

func newTestPipeline(t *testing.T) (*Pipeline, *rankingstore.Store) {
	t.Helper()
	backend, err := kv.Open(kv.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	store := rankingstore.New(backend)
	idx := symbolindex.New(t.TempDir())
	engine := prediction.NewEngine(store, idx, "proj")
	p := NewPipeline(store, engine, "proj", nil)
	t.Cleanup(p.Stop)
	return p, store
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestPipeline_ToolUseEvent_RecordsAccess(t *testing.T) {
	p, store := newTestPipeline(t)

	err := p.Submit(Envelope{
		Tool: "Read", SessionID: "s1", Timestamp: 1000_000,
		ToolInput: map[string]any{"file_path": "auth.go"},
	})
	require.NoError(t, err)

	waitFor(t, func() bool {
		_, ok, _ := store.LastAccess(context.Background(), "proj", "auth.go")
		return ok
	})
}

func TestPipeline_SessionStartEvent_CreatesUnexpiredSession(t *testing.T) {
	p, store := newTestPipeline(t)

	err := p.Submit(Envelope{SessionID: "s1", Project: "proj", Timestamp: 1000_000})
	require.NoError(t, err)

	waitFor(t, func() bool {
		expired, err := store.SequenceExpired(context.Background(), "proj", "s1", 1000)
		return err == nil && !expired
	})
}

func TestPipeline_BurstOverRateLimit_IncrementsDroppedCounter(t *testing.T) {
	p, _ := newTestPipeline(t)

	// Fill the session's limiter burst quickly so Submit starts dropping
	// via the rate limiter path, which is also counted.
	for i := 0; i < sessionRateBurst+sessionQueueCap+10; i++ {
		_ = p.Submit(Envelope{
			Tool: "Read", SessionID: "overflow", Timestamp: 1000_000,
			ToolInput: map[string]any{"file_path": "f.go"},
		})
	}
	assert.Greater(t, p.Dropped(), uint64(0))
}

func TestEnvelope_InvalidEnvelopeRejectedBySubmit(t *testing.T) {
	p, _ := newTestPipeline(t)
	err := p.Submit(Envelope{Tool: "Read"})
	assert.Error(t, err)
}
