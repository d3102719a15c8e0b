// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package symbolindex

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nextread/nextread/pkg/tokenize"
)

func TestIndexPath_ThenQuery_Finds(t *testing.T) {
	idx := New("/repo")
	idx.IndexPath("auth/handler.go", tokenize.Lines("func HandleLogin() {}\n"))

	results, truncated, err := idx.Symbol("HandleLogin", 10)
	assert.NoError(t, err)
	assert.False(t, truncated)
	if assert.Len(t, results, 1) {
		assert.Equal(t, "auth/handler.go", results[0].Path)
	}
}

func TestIndexPath_ReindexIsAtomicDeleteThenInsert(t *testing.T) {
	idx := New("/repo")
	idx.IndexPath("a.go", tokenize.Lines("func Old() {}\n"))
	idx.IndexPath("a.go", tokenize.Lines("func New2() {}\n"))

	results, _, _ := idx.Symbol("Old", 10)
	assert.Empty(t, results)

	results, _, _ = idx.Symbol("New2", 10)
	assert.Len(t, results, 1)
}

func TestRemovePath_DropsAllPostings(t *testing.T) {
	idx := New("/repo")
	idx.IndexPath("a.go", tokenize.Lines("func Thing() {}\n"))
	idx.RemovePath("a.go")

	results, _, _ := idx.Symbol("Thing", 10)
	assert.Empty(t, results)
	assert.Equal(t, Stats{}, idx.Stats())
}

func TestMultiAND_RequiresAllTokens(t *testing.T) {
	idx := New("/repo")
	idx.IndexPath("a.go", tokenize.Lines("func Handle() { auth() }\n"))
	idx.IndexPath("b.go", tokenize.Lines("func Handle() {}\n"))

	results, _, err := idx.MultiAND([]string{"handle", "auth"}, 10)
	assert.NoError(t, err)
	if assert.Len(t, results, 1) {
		assert.Equal(t, "a.go", results[0].Path)
	}
}

func TestMultiAND_EmptyTokensIsBadQuery(t *testing.T) {
	idx := New("/repo")
	_, _, err := idx.MultiAND(nil, 10)
	assert.ErrorIs(t, err, ErrBadQuery)
}

func TestSymbol_NameBoostRanksFilenameMatchFirst(t *testing.T) {
	idx := New("/repo")
	idx.IndexPath("pkg/auth/auth.go", tokenize.Lines("package auth\n"))
	idx.IndexPath("pkg/other/file.go", tokenize.Lines("// references auth indirectly\nvar auth = 1\n"))

	results, _, err := idx.Symbol("auth", 10)
	assert.NoError(t, err)
	if assert.GreaterOrEqual(t, len(results), 1) {
		assert.Equal(t, "pkg/auth/auth.go", results[0].Path)
	}
}

func TestTouch_BoundsWorkingSetAndMovesToFront(t *testing.T) {
	idx := New("/repo")
	for i := 0; i < maxWorkingSet+5; i++ {
		idx.Touch(string(rune('a' + i%26)))
	}
	assert.LessOrEqual(t, len(idx.WorkingSet()), maxWorkingSet)

	idx2 := New("/repo")
	idx2.Touch("a.go")
	idx2.Touch("b.go")
	idx2.Touch("a.go")
	ws := idx2.WorkingSet()
	assert.Equal(t, "a.go", ws[0])
}

func TestPaths_SortedSnapshot(t *testing.T) {
	idx := New("/repo")
	idx.IndexPath("b.go", tokenize.Lines("func B() {}\n"))
	idx.IndexPath("a.go", tokenize.Lines("func A() {}\n"))
	assert.Equal(t, []string{"a.go", "b.go"}, idx.Paths())
}
