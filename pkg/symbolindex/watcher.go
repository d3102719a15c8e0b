// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package symbolindex

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce batches the flurry of write events a single save
// generates (editors commonly truncate-then-write) before re-indexing.
const watchDebounce = 150 * time.Millisecond

// Watcher keeps an Index in sync with its filesystem root after the
// initial full walk, using fsnotify for incremental updates; index build
// and incremental update must never block queries.
type Watcher struct {
	root    string
	walker  *Walker
	idx     *Index
	fsw     *fsnotify.Watcher
	logger  *slog.Logger
	done    chan struct{}
	stopped sync.Once
}

// NewWatcher creates a Watcher rooted at root. Call Start to begin
// watching; Stop releases the underlying fsnotify handle.
func NewWatcher(root string, walker *Walker, idx *Index, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		root:   root,
		walker: walker,
		idx:    idx,
		fsw:    fsw,
		logger: logger,
		done:   make(chan struct{}),
	}, nil
}

// Start recursively registers every eligible directory and begins
// processing events. It blocks until ctx is canceled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.root); err != nil {
		return err
	}

	changes := make(chan string, 1024)
	go w.debounceLoop(ctx, changes)
	return w.processEvents(ctx, changes)
}

// Stop releases the fsnotify handle, unblocking Start.
func (w *Watcher) Stop() {
	w.stopped.Do(func() {
		close(w.done)
		w.fsw.Close()
	})
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if _, excluded := defaultExcludeDirs[d.Name()]; excluded && path != root {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			w.logger.Warn("symbolindex.watch.add_error", "path", path, "error", addErr)
		}
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context, changes chan<- string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.done:
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			rel, err := filepath.Rel(w.root, event.Name)
			if err != nil || !eligible(rel) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					if addErr := w.fsw.Add(event.Name); addErr != nil {
						w.logger.Warn("symbolindex.watch.add_error", "path", event.Name, "error", addErr)
					}
					continue
				}
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.idx.RemovePath(filepath.ToSlash(rel))
				continue
			}
			select {
			case changes <- rel:
			default:
				w.logger.Warn("symbolindex.watch.buffer_full", "path", rel)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("symbolindex.watch.error", "error", err)
		}
	}
}

// debounceLoop batches repeated writes to the same path within
// watchDebounce before handing it to the walker for re-indexing.
func (w *Watcher) debounceLoop(ctx context.Context, changes <-chan string) {
	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		for rel := range pending {
			if err := w.walker.Update(w.idx, rel); err != nil {
				w.logger.Warn("symbolindex.watch.reindex_error", "path", rel, "error", err)
			}
		}
		pending = make(map[string]struct{})
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case rel := <-changes:
			pending[rel] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
				timerC = timer.C
			} else {
				timer.Reset(watchDebounce)
			}
		case <-timerC:
			flush()
		}
	}
}
