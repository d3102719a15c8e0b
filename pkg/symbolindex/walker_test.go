// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package symbolindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestWalker_Full_IndexesEligibleFilesAndSkipsExcludedDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pkg/auth.go", "func HandleLogin() {}\n")
	writeFile(t, dir, "vendor/dep/dep.go", "func ShouldNeverAppear() {}\n")
	writeFile(t, dir, ".git/HEAD", "ref: refs/heads/main\n")

	idx := New(dir)
	w := NewWalker(dir, NewExtractor(nil), nil)
	stats, err := w.Full(idx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Indexed)

	results, _, err := idx.Symbol("HandleLogin", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, _, err = idx.Symbol("ShouldNeverAppear", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestWalker_Update_ReindexesSinglePath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "func Old() {}\n")

	idx := New(dir)
	w := NewWalker(dir, NewExtractor(nil), nil)
	_, err := w.Full(idx)
	require.NoError(t, err)

	writeFile(t, dir, "a.go", "func New2() {}\n")
	require.NoError(t, w.Update(idx, "a.go"))

	results, _, _ := idx.Symbol("Old", 10)
	assert.Empty(t, results)
	results, _, _ = idx.Symbol("New2", 10)
	assert.Len(t, results, 1)
}

func TestLooksBinary_DetectsNulByte(t *testing.T) {
	assert.True(t, looksBinary([]byte{0x00, 0x01, 0x02}))
	assert.False(t, looksBinary([]byte("package main\n")))
}

func TestEligible_RejectsExcludedDirComponents(t *testing.T) {
	assert.False(t, eligible("vendor/dep/dep.go"))
	assert.False(t, eligible("node_modules/x/index.js"))
	assert.True(t, eligible("pkg/auth/handler.go"))
}
