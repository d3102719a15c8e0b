// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package symbolindex

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// defaultExcludeDirs are skipped outright during a full walk, mirroring
// the common ignore set a repository-aware indexer always carries
// regardless of project-specific excludes ( "vendor and
// build directories are never indexed").
var defaultExcludeDirs = map[string]struct{}{
	".git":         {},
	"vendor":       {},
	"node_modules": {},
	".nextread":    {},
	"dist":         {},
	"build":        {},
	".venv":        {},
	"__pycache__":  {},
}

// maxIndexFileSize bounds how large a single file can be before it is
// skipped rather than parsed; generated files and binary blobs that slip
// past extension filtering are the usual offenders.
const maxIndexFileSize = 2 << 20 // 2 MiB

// WalkStats summarizes one full walk for status reporting.
type WalkStats struct {
	Indexed int
	Skipped int
}

// Walker performs a full-repository walk, extracting and indexing every
// eligible file under root.
type Walker struct {
	root      string
	extractor *Extractor
	logger    *slog.Logger
}

// NewWalker returns a Walker rooted at root using extractor for
// tokenization.
func NewWalker(root string, extractor *Extractor, logger *slog.Logger) *Walker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Walker{root: root, extractor: extractor, logger: logger}
}

// Full walks the entire tree under w.root, indexing every eligible file
// into idx. It is the bulk-load path used by `nextread index` and by
// serve's startup pass before the watcher takes over.
func (w *Walker) Full(idx *Index) (WalkStats, error) {
	var stats WalkStats

	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("symbolindex.walk.error", "path", path, "error", err)
			return nil
		}
		if path == w.root {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil
		}

		if d.IsDir() {
			if _, excluded := defaultExcludeDirs[d.Name()]; excluded {
				return filepath.SkipDir
			}
			return nil
		}

		ok, err := w.indexOne(idx, rel)
		if err != nil {
			w.logger.Warn("symbolindex.walk.skip", "path", rel, "error", err)
			stats.Skipped++
			return nil
		}
		if ok {
			stats.Indexed++
		} else {
			stats.Skipped++
		}
		return nil
	})
	return stats, err
}

// Update re-indexes a single path, used by the fsnotify-driven watcher
// for incremental updates.
func (w *Walker) Update(idx *Index, rel string) error {
	_, err := w.indexOne(idx, rel)
	return err
}

// indexOne reads, tokenizes, and indexes a single relative path. It
// returns ok=false (with no error) for files skipped by size or
// eligibility rather than failure.
func (w *Walker) indexOne(idx *Index, rel string) (bool, error) {
	if !eligible(rel) {
		return false, nil
	}
	full := filepath.Join(w.root, rel)
	info, err := os.Stat(full)
	if err != nil {
		return false, err
	}
	if info.Size() > maxIndexFileSize {
		return false, nil
	}

	content, err := os.ReadFile(full)
	if err != nil {
		return false, err
	}
	if looksBinary(content) {
		return false, nil
	}

	rel = filepath.ToSlash(rel)
	idx.IndexPath(rel, w.extractor.Extract(rel, content))
	return true, nil
}

// eligible applies the default exclude-dir check to every path
// component, since WalkDir's SkipDir only prunes directories reached via
// the walk itself — single-path Update calls from the watcher need the
// same filter applied manually.
func eligible(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if _, excluded := defaultExcludeDirs[part]; excluded {
			return false
		}
	}
	return true
}

// looksBinary applies the conventional NUL-byte heuristic to the first
// slice of a file's content.
func looksBinary(content []byte) bool {
	n := len(content)
	if n > 512 {
		n = 512
	}
	for _, b := range content[:n] {
		if b == 0 {
			return true
		}
	}
	return false
}
