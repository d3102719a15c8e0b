// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	internalerrors "github.com/nextread/nextread/internal/errors"
	"github.com/nextread/nextread/internal/ui"
	"github.com/nextread/nextread/internal/bootstrap"
)

// runServe executes 'nextread serve': opens the project via
// internal/bootstrap (Symbol Index initial walk, Ranking Store,
// Prediction Engine, Intent Capture Pipeline, background loops) and
// exposes them over an HTTP surface bound to the address
// .nextread/project.yaml's http_addr configures. A PID file lets
// `nextread stop` find this process.
func runServe(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	debug := fs.Bool("debug", false, "Enable debug logging")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: nextread serve [options]

Starts the local HTTP surface (symbol search, ranking, prediction,
intent capture) for the current project. Intended to run as a
long-lived background process; pair with 'nextread stop'.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		internalerrors.FatalError(internalerrors.NewConfigError(
			"cannot load project configuration", err.Error(),
			"run 'nextread init' in this directory first", err), globals.JSON)
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	root, err := os.Getwd()
	if err != nil {
		internalerrors.FatalError(internalerrors.NewInternalError("cannot get current directory", err.Error(), "", err), globals.JSON)
	}

	if err := writePIDFile(cfg.DataDir); err != nil {
		logger.Warn("serve.pidfile.write_failed", "error", err)
	}
	defer removePIDFile(cfg.DataDir)

	ui.Header("Starting nextread")
	ui.Info(fmt.Sprintf("project: %s", cfg.ProjectID))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sup, err := bootstrap.OpenSupervisor(ctx, bootstrap.SupervisorConfig{
		RegistryPath: RegistryPath(),
		Active: bootstrap.ProjectConfig{
			ProjectID:               cfg.ProjectID,
			Root:                    root,
			DataDir:                 cfg.DataDir,
			BackendKind:             cfg.Backend.Kind,
			RedisAddr:               cfg.Backend.RedisAddr,
			RedisDB:                 cfg.Backend.RedisDB,
			PredictionRetainSeconds: int64(7 * 24 * 3600),
			Logger:                  logger,
		},
		Logger: logger,
	})
	if err != nil {
		internalerrors.FatalError(internalerrors.NewDatabaseError(
			"cannot open project", err.Error(),
			"check that no other 'nextread serve' is already running for this project", err), globals.JSON)
	}
	ui.Success("Symbol Index ready")

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: sup.Server(logger)}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("serve.http.start", "addr", cfg.HTTPAddr)
		serveErr <- httpSrv.ListenAndServe()
	}()

	ui.Success(fmt.Sprintf("Listening on http://%s", cfg.HTTPAddr))

	select {
	case sig := <-sigChan:
		logger.Info("serve.shutdown.signal", "signal", sig.String())
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve.http.error", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)

	cancel()
	if err := sup.Close(); err != nil {
		logger.Warn("serve.project.close_failed", "error", err)
	}
	ui.Success("nextread stopped")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "serve.pid")
}

func writePIDFile(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(pidFilePath(dataDir), []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func removePIDFile(dataDir string) {
	_ = os.Remove(pidFilePath(dataDir))
}

func readPIDFile(dataDir string) (int, error) {
	data, err := os.ReadFile(pidFilePath(dataDir))
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(string(data))
}
