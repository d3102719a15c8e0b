// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/nextread/nextread/internal/errors"
	"github.com/nextread/nextread/internal/ui"
	"github.com/nextread/nextread/pkg/symbolindex"
)

// runIndex executes 'nextread index', performing a full walk of the
// project root and writing a fresh Symbol Index snapshot. Concurrent
// runs (e.g. a manual run racing the git hook's background reindex)
// are serialized by a per-project flock; a second run exits quietly
// rather than corrupting the snapshot.
//
// Flags:
//   - --full: accepted for command-line symmetry with an incremental
//     variant, but the walk is always full (the background watcher
//     covers the incremental path); the flag is accepted and ignored.
//   - --debug: enable debug logging.
func runIndex(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	_ = fs.Bool("full", false, "Full reindex (default and only mode; accepted for compatibility)")
	debug := fs.Bool("debug", false, "Enable debug logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: nextread index [options]

Builds the Symbol Index for the current project from scratch and
writes a snapshot to the project's data directory. Concurrent
'nextread index' runs are serialized by a lock file; 'nextread serve'
does not take that lock.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"cannot load project configuration", err.Error(),
			"run 'nextread init' in this directory first", err), globals.JSON)
	}

	logLevel := slog.LevelInfo
	if debug != nil && *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	lock, err := NewIndexLock(cfg.DataDir)
	if err != nil {
		errors.FatalError(errors.NewInternalError("cannot prepare index lock", err.Error(), "", err), globals.JSON)
	}

	acquired, err := lock.TryAcquire()
	if err != nil {
		errors.FatalError(errors.NewInternalError("cannot acquire index lock", err.Error(), "", err), globals.JSON)
	}
	if !acquired {
		info, _ := lock.Info()
		if info != nil {
			ui.Warning(fmt.Sprintf("index already running under pid %d (started %s); skipping", info.PID, info.StartedAt.Format("15:04:05")))
		} else {
			ui.Warning("index already running; skipping")
		}
		return
	}
	defer lock.Release()

	root, err := os.Getwd()
	if err != nil {
		errors.FatalError(errors.NewInternalError("cannot get current directory", err.Error(), "", err), globals.JSON)
	}

	progressCfg := NewProgressConfig(globals)
	spinner := NewSpinner(progressCfg, "Indexing")

	idx := symbolindex.New(root)
	extractor := symbolindex.NewExtractor(logger)
	walker := symbolindex.NewWalker(root, extractor, logger)

	logger.Info("index.walk.start", "project_id", cfg.ProjectID, "root", root)
	stats, err := walker.Full(idx)
	if spinner != nil {
		_ = spinner.Finish()
	}
	if err != nil {
		errors.FatalError(errors.NewInternalError("symbol index walk failed", err.Error(), "", err), globals.JSON)
	}

	snapshotPath := symbolindex.SnapshotPath(cfg.DataDir, cfg.ProjectID)
	if err := idx.Save(snapshotPath); err != nil {
		errors.FatalError(errors.NewInternalError("cannot write index snapshot", err.Error(), "", err), globals.JSON)
	}

	printIndexResult(cfg, stats, snapshotPath)
}

func printIndexResult(cfg Config, stats symbolindex.WalkStats, snapshotPath string) {
	ui.Header("Indexing Complete")
	fmt.Printf("%s %s\n", ui.Label("Project ID:"), cfg.ProjectID)
	fmt.Printf("%s %s\n", ui.Label("Files Indexed:"), ui.CountText(stats.Indexed))
	fmt.Printf("%s %s\n", ui.Label("Files Skipped:"), ui.CountText(stats.Skipped))
	fmt.Printf("%s %s\n", ui.Label("Snapshot:"), ui.DimText(snapshotPath))
	fmt.Println()
}
