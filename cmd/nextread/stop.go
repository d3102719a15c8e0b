// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"flag"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/nextread/nextread/internal/errors"
	"github.com/nextread/nextread/internal/ui"
)

// runStop executes 'nextread stop', sending SIGTERM to the PID
// recorded by a running 'nextread serve' and waiting briefly for it to
// exit cleanly.
func runStop(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("stop", flag.ExitOnError)
	timeout := fs.Duration("timeout", 10*time.Second, "How long to wait for graceful shutdown")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: nextread stop [options]

Stops a running 'nextread serve' process for the current project,
preserving all on-disk state (Symbol Index snapshot, Ranking Store).

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

	pid, err := readPIDFile(cfg.DataDir)
	if err != nil {
		errors.FatalError(errors.NewNotFoundError(
			"no running nextread serve found",
			fmt.Sprintf("no pid file at %s", pidFilePath(cfg.DataDir)),
			"start it with 'nextread serve'"), globals.JSON)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		errors.FatalError(errors.NewInternalError("cannot find process", err.Error(), "", err), globals.JSON)
	}

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		errors.FatalError(errors.NewInternalError(
			"cannot stop nextread serve",
			err.Error(),
			"the recorded pid may be stale; remove "+pidFilePath(cfg.DataDir)+" manually", err), globals.JSON)
	}

	ui.Info(fmt.Sprintf("sent SIGTERM to pid %d, waiting for shutdown...", pid))

	deadline := time.Now().Add(*timeout)
	for time.Now().Before(deadline) {
		if err := proc.Signal(syscall.Signal(0)); err != nil {
			ui.Success("nextread serve stopped")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}

	ui.Warning("process did not exit within timeout; it may still be shutting down")
}
