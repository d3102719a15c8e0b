// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package symbolindex

import (
	"sort"
	"sync"

	"github.com/nextread/nextread/pkg/tokenize"
)

// maxWorkingSet bounds the number of recently-accessed paths the Regex
// query mode is allowed to scan.
const maxWorkingSet = 50

// posting is the per-path occurrence record for one token.
type posting struct {
	lines []int
	count int
}

// Index is the in-memory inverted index: Token→Postings, Path→Tokens, and
// the filename-stem index, plus a bounded working set of recently
// accessed paths for regex scans.
//
// All mutation goes through IndexPath/RemovePath, which apply atomically
// under a single write lock so readers never observe a half-updated path
// ( "Index build and incremental update must not block
// queries").
type Index struct {
	mu sync.RWMutex

	// token (raw or lowercased) -> path -> posting
	postings map[string]map[string]*posting
	// path -> set of tokens indexed for it
	pathTokens map[string]map[string]struct{}
	// filename stem token -> set of paths
	filenameIndex map[string]map[string]struct{}
	// path -> total token occurrences (for density normalization)
	pathTotals map[string]int

	workingSet   []string
	workingSetAt map[string]int // path -> position for O(1) move-to-front

	// root is the filesystem directory paths are relative to; used only
	// by Regex, which must re-read file content to scan it.
	root string
}

// New returns an empty Index rooted at root (used to resolve relative
// paths back to disk for regex scans).
func New(root string) *Index {
	return &Index{
		postings:      make(map[string]map[string]*posting),
		pathTokens:    make(map[string]map[string]struct{}),
		filenameIndex: make(map[string]map[string]struct{}),
		pathTotals:    make(map[string]int),
		workingSetAt:  make(map[string]int),
		root:          root,
	}
}

// IndexPath (re)indexes a single path from its token stream. It is an
// atomic delete-then-insert: the path's previous postings are removed
// before the new ones are added, all under one write lock.
func (idx *Index) IndexPath(path string, tokens []tokenize.Token) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.removeLocked(path)

	if len(tokens) == 0 {
		return
	}

	perToken := make(map[string]*posting)
	total := 0
	for _, tok := range tokens {
		p, ok := perToken[tok.Text]
		if !ok {
			p = &posting{}
			perToken[tok.Text] = p
		}
		p.lines = append(p.lines, tok.Line)
		p.count++
		total++
	}

	tokenSet := make(map[string]struct{}, len(perToken))
	for text, p := range perToken {
		byPath, ok := idx.postings[text]
		if !ok {
			byPath = make(map[string]*posting)
			idx.postings[text] = byPath
		}
		byPath[path] = p
		tokenSet[text] = struct{}{}
	}
	idx.pathTokens[path] = tokenSet
	idx.pathTotals[path] = total

	for _, stem := range tokenize.FilenameStem(path) {
		paths, ok := idx.filenameIndex[stem]
		if !ok {
			paths = make(map[string]struct{})
			idx.filenameIndex[stem] = paths
		}
		paths[path] = struct{}{}
	}
}

// RemovePath deletes all postings, tokens, and filename-index entries
// owned by path. It is a no-op if path was never indexed.
func (idx *Index) RemovePath(path string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(path)
}

// removeLocked must be called with idx.mu held for writing.
func (idx *Index) removeLocked(path string) {
	for text := range idx.pathTokens[path] {
		if byPath, ok := idx.postings[text]; ok {
			delete(byPath, path)
			if len(byPath) == 0 {
				delete(idx.postings, text)
			}
		}
	}
	delete(idx.pathTokens, path)
	delete(idx.pathTotals, path)

	stem := tokenize.FilenameStem(path)
	for _, s := range stem {
		if paths, ok := idx.filenameIndex[s]; ok {
			delete(paths, path)
			if len(paths) == 0 {
				delete(idx.filenameIndex, s)
			}
		}
	}
}

// Touch records an access to path for the bounded regex working set,
// moving it to the front and evicting the oldest entry past maxWorkingSet.
func (idx *Index) Touch(path string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if pos, ok := idx.workingSetAt[path]; ok {
		idx.workingSet = append(idx.workingSet[:pos], idx.workingSet[pos+1:]...)
		for p, i := range idx.workingSetAt {
			if i > pos {
				idx.workingSetAt[p] = i - 1
			}
		}
	}
	idx.workingSet = append([]string{path}, idx.workingSet...)
	for p, i := range idx.workingSetAt {
		idx.workingSetAt[p] = i + 1
	}
	idx.workingSetAt[path] = 0

	if len(idx.workingSet) > maxWorkingSet {
		evicted := idx.workingSet[len(idx.workingSet)-1]
		idx.workingSet = idx.workingSet[:len(idx.workingSet)-1]
		delete(idx.workingSetAt, evicted)
	}
}

// WorkingSet returns a snapshot of the bounded recently-accessed path list,
// most-recent first.
func (idx *Index) WorkingSet() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]string, len(idx.workingSet))
	copy(out, idx.workingSet)
	return out
}

// Paths returns every currently-indexed path, sorted for deterministic
// iteration (used by status reporting, not by hot query paths).
func (idx *Index) Paths() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]string, 0, len(idx.pathTokens))
	for p := range idx.pathTokens {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Stats reports coarse index size for status/health endpoints.
type Stats struct {
	Paths    int
	Tokens   int
	Postings int
}

// Stats returns the current index size.
func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	postings := 0
	for _, byPath := range idx.postings {
		postings += len(byPath)
	}
	return Stats{
		Paths:    len(idx.pathTokens),
		Tokens:   len(idx.postings),
		Postings: postings,
	}
}
