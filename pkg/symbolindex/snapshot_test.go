// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package symbolindex

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextread/nextread/pkg/tokenize"
)

func TestSaveThenLoad_RoundTripsPostings(t *testing.T) {
	idx := New("/repo")
	idx.IndexPath("auth/handler.go", tokenize.Lines("func HandleLogin() {}\n"))
	idx.IndexPath("b.go", tokenize.Lines("func Other() {}\n"))
	idx.Touch("auth/handler.go")

	path := filepath.Join(t.TempDir(), "proj.snapshot.gz")
	require.NoError(t, idx.Save(path))

	loaded := New("/repo")
	require.NoError(t, loaded.Load(path))

	results, _, err := loaded.Symbol("HandleLogin", 10)
	assert.NoError(t, err)
	if assert.Len(t, results, 1) {
		assert.Equal(t, "auth/handler.go", results[0].Path)
	}
	assert.Equal(t, idx.Stats(), loaded.Stats())
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	idx := New("/repo")
	err := idx.Load(filepath.Join(t.TempDir(), "nonexistent.snapshot.gz"))
	assert.NoError(t, err)
	assert.Equal(t, Stats{}, idx.Stats())
}

func TestSnapshotPath_NamesFileByProject(t *testing.T) {
	got := SnapshotPath("/data", "abc-123")
	assert.Equal(t, filepath.Join("/data", "symbolindex", "abc-123.snapshot.gz"), got)
}
