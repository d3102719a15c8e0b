// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package symbolindex

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextread/nextread/pkg/tokenize"
)

func TestSymbol_EmptyQueryReturnsNoResults(t *testing.T) {
	idx := New("/repo")
	results, truncated, err := idx.Symbol("   ", 10)
	assert.NoError(t, err)
	assert.False(t, truncated)
	assert.Empty(t, results)
}

func TestRank_TruncatesAndReportsTruncated(t *testing.T) {
	idx := New("/repo")
	for i := 0; i < 5; i++ {
		idx.IndexPath(string(rune('a'+i))+".go", tokenize.Lines("func Widget() {}\n"))
	}
	results, truncated, err := idx.Symbol("widget", 2)
	assert.NoError(t, err)
	assert.True(t, truncated)
	assert.Len(t, results, 2)
}

func TestRegexIn_ScansGivenPaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("var secretToken = \"x\"\n"), 0o644))

	idx := New(dir)
	matches, truncated, err := idx.RegexIn(context.Background(), `secret\w+`, []string{"a.go"}, 10)
	assert.NoError(t, err)
	assert.False(t, truncated)
	if assert.Len(t, matches, 1) {
		assert.Equal(t, "secretToken", matches[0].Match)
		assert.Equal(t, 1, matches[0].Line)
	}
}

func TestRegexIn_InvalidPatternIsBadQuery(t *testing.T) {
	idx := New("/repo")
	_, _, err := idx.RegexIn(context.Background(), "(unclosed", nil, 10)
	assert.ErrorIs(t, err, ErrBadQuery)
}

func TestRegexIn_UnreadableFileIsSkippedNotFatal(t *testing.T) {
	idx := New(t.TempDir())
	matches, _, err := idx.RegexIn(context.Background(), "x", []string{"missing.go"}, 10)
	assert.NoError(t, err)
	assert.Empty(t, matches)
}
