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

// Package bootstrap owns every piece of process-wide mutable state a
// running project needs: the Ranking Store backend, the Symbol
// Index and its full-walk/incremental-watch pair, the Prediction
// Engine and its tuner, the intent capture pipeline, and the HTTP
// server that fronts them all. It also supervises the background loops
// a live project requires (prediction finalization, cache eviction, index
// snapshotting) and owns their single, once-only teardown.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/nextread/nextread/pkg/httpapi"
	"github.com/nextread/nextread/pkg/intentcapture"
	"github.com/nextread/nextread/pkg/prediction"
	"github.com/nextread/nextread/pkg/rankingstore"
	"github.com/nextread/nextread/pkg/rankingstore/kv"
	"github.com/nextread/nextread/pkg/symbolindex"
)

// ProjectConfig is everything bootstrap needs to stand up one project's
// worth of process state. It intentionally has no dependency on the
// CLI's on-disk config format; cmd/nextread translates its Config into
// this shape.
type ProjectConfig struct {
	ProjectID string
	Root      string // filesystem directory the project indexes
	DataDir   string // this project's slice of the data directory

	// Backend selects the kv.Store implementation.
	BackendKind string // "badger" (default) or "redis"
	RedisAddr   string
	RedisDB     int

	// PredictionRetainSeconds bounds how long resolved prediction
	// records are kept before PrunePredictionsOlderThan reclaims them.
	PredictionRetainSeconds int64

	// SnapshotInterval schedules periodic Save of the Symbol Index; zero
	// disables periodic saves (Save still runs once at Close).
	SnapshotInterval time.Duration

	Logger *slog.Logger
}

// finalizeScheduleSpec and evictionScheduleSpec are the cron expressions
// for the two maintenance loops a running project needs. Finalization runs
// often since it gates prediction hit/miss attribution; eviction is
// cheaper to run less frequently.
const (
	finalizeScheduleSpec = "@every 30s"
	evictionScheduleSpec = "@every 5m"
)

const defaultSnapshotInterval = 2 * time.Minute

// Project bundles one project's live store/index/engine/pipeline/server
// plus the background loops that keep them current, all torn down
// together by Close.
type Project struct {
	cfg    ProjectConfig
	logger *slog.Logger

	kvStore kv.Store
	Store   *rankingstore.Store
	Index   *symbolindex.Index
	Engine  *prediction.Engine
	Tuner   *prediction.Tuner

	walker  *symbolindex.Walker
	watcher *symbolindex.Watcher

	Pipeline *intentcapture.Pipeline
	Server   *httpapi.Server

	cron   *cron.Cron
	group  *errgroup.Group
	cancel context.CancelFunc
}

// Open constructs every piece of process state for one project,
// performs the initial symbol-index sweep synchronously (so the
// returned Project is immediately queryable), and starts the watcher
// and maintenance loops in the background. Callers must call Close
// exactly once.
func Open(ctx context.Context, cfg ProjectConfig) (*Project, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("bootstrap: project_id is required")
	}
	if cfg.Root == "" {
		return nil, fmt.Errorf("bootstrap: root is required")
	}
	if cfg.PredictionRetainSeconds == 0 {
		cfg.PredictionRetainSeconds = 7 * 24 * 3600
	}
	if cfg.SnapshotInterval == 0 {
		cfg.SnapshotInterval = defaultSnapshotInterval
	}

	kvStore, err := openBackend(cfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open backend: %w", err)
	}

	store := rankingstore.New(kvStore)
	index := symbolindex.New(cfg.Root)

	snapshotPath := symbolindex.SnapshotPath(cfg.DataDir, cfg.ProjectID)
	if err := index.Load(snapshotPath); err != nil {
		logger.Warn("bootstrap.index.snapshot.load_failed", "project_id", cfg.ProjectID, "error", err)
	}

	extractor := symbolindex.NewExtractor(logger)
	walker := symbolindex.NewWalker(cfg.Root, extractor, logger)

	logger.Info("bootstrap.index.walk.start", "project_id", cfg.ProjectID, "root", cfg.Root)
	stats, err := walker.Full(index)
	if err != nil {
		_ = kvStore.Close()
		return nil, fmt.Errorf("bootstrap: initial walk: %w", err)
	}
	logger.Info("bootstrap.index.walk.done", "project_id", cfg.ProjectID, "indexed", stats.Indexed, "skipped", stats.Skipped)

	watcher, err := symbolindex.NewWatcher(cfg.Root, walker, index, logger)
	if err != nil {
		_ = kvStore.Close()
		return nil, fmt.Errorf("bootstrap: create watcher: %w", err)
	}

	engine := prediction.NewEngine(store, index, cfg.ProjectID)
	pipeline := intentcapture.NewPipeline(store, engine, cfg.ProjectID, logger)
	server := httpapi.NewServer(httpapi.NewStaticResolver(store, index, engine, pipeline, cfg.ProjectID), logger)
	server.SetReady(true)

	runCtx, cancel := context.WithCancel(ctx)
	group, runCtx := errgroup.WithContext(runCtx)

	p := &Project{
		cfg: cfg, logger: logger,
		kvStore: kvStore, Store: store, Index: index, Engine: engine, Tuner: engine.Tuner(),
		walker: walker, watcher: watcher,
		Pipeline: pipeline, Server: server,
		cron: cron.New(), group: group, cancel: cancel,
	}

	group.Go(func() error {
		if err := watcher.Start(runCtx); err != nil && runCtx.Err() == nil {
			logger.Warn("bootstrap.watcher.stopped", "project_id", cfg.ProjectID, "error", err)
		}
		return nil
	})

	p.scheduleMaintenance(runCtx)
	p.cron.Start()

	return p, nil
}

// openBackend picks the kv.Store implementation per cfg.BackendKind.
// Redis is the only alternative to the default embedded Badger store;
// anything else is a config error caught at startup rather than on
// first query.
func openBackend(cfg ProjectConfig) (kv.Store, error) {
	switch cfg.BackendKind {
	case "", "badger":
		return kv.Open(kv.DefaultConfig(cfg.DataDir))
	case "redis":
		return kv.NewRedisStore(kv.RedisConfig{Addr: cfg.RedisAddr, DB: cfg.RedisDB}), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown backend kind %q", cfg.BackendKind)
	}
}

// scheduleMaintenance wires the prediction-finalization and
// cache-eviction background loops onto p.cron ( "Background
// tasks (finalization, cache eviction, index incremental updates)
// recover on next tick; persistent failure increments a visible health
// counter but does not crash the process"). A periodic index snapshot
// save rides the errgroup instead of cron since its period is
// configurable per ProjectConfig rather than fixed.
func (p *Project) scheduleMaintenance(ctx context.Context) {
	p.cron.AddFunc(finalizeScheduleSpec, func() {
		n, err := p.Engine.FinalizeStale(ctx, time.Now().Unix())
		if err != nil {
			p.logger.Warn("bootstrap.finalize.failed", "project_id", p.cfg.ProjectID, "error", err)
			return
		}
		if n > 0 {
			p.logger.Debug("bootstrap.finalize.done", "project_id", p.cfg.ProjectID, "finalized", n)
		}
	})

	p.cron.AddFunc(evictionScheduleSpec, func() {
		now := time.Now().Unix()
		if n, err := p.Store.PrunePredictionsOlderThan(ctx, p.cfg.ProjectID, now, p.cfg.PredictionRetainSeconds); err != nil {
			p.logger.Warn("bootstrap.prune_predictions.failed", "project_id", p.cfg.ProjectID, "error", err)
		} else if n > 0 {
			p.logger.Debug("bootstrap.prune_predictions.done", "project_id", p.cfg.ProjectID, "pruned", n)
		}

		sessions := p.Pipeline.ActiveSessions()
		if n, err := p.Store.PurgeExpiredSessions(ctx, p.cfg.ProjectID, sessions, now); err != nil {
			p.logger.Warn("bootstrap.purge_sessions.failed", "project_id", p.cfg.ProjectID, "error", err)
		} else if n > 0 {
			p.logger.Debug("bootstrap.purge_sessions.done", "project_id", p.cfg.ProjectID, "purged", n)
		}
	})

	p.group.Go(func() error {
		ticker := time.NewTicker(p.cfg.SnapshotInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := p.Index.Save(symbolindex.SnapshotPath(p.cfg.DataDir, p.cfg.ProjectID)); err != nil {
					p.logger.Warn("bootstrap.index.snapshot.save_failed", "project_id", p.cfg.ProjectID, "error", err)
				}
			}
		}
	})
}

// deps returns p's dependencies in the shape a Supervisor hands to the
// shared httpapi.Server when dispatching a request onto this project.
func (p *Project) deps() httpapi.ProjectDeps {
	return httpapi.ProjectDeps{Store: p.Store, Index: p.Index, Engine: p.Engine, Pipeline: p.Pipeline, Project: p.cfg.ProjectID}
}

// Close stops every background loop, saves a final index snapshot, and
// closes the kv backend. Safe to call once; a second call is a no-op
// error from the already-canceled context, which callers ignore.
func (p *Project) Close() error {
	p.cron.Stop()
	p.watcher.Stop()
	p.cancel()
	p.Pipeline.Stop()
	_ = p.group.Wait()

	if err := p.Index.Save(symbolindex.SnapshotPath(p.cfg.DataDir, p.cfg.ProjectID)); err != nil {
		p.logger.Warn("bootstrap.index.snapshot.save_failed", "project_id", p.cfg.ProjectID, "error", err)
	}
	return p.kvStore.Close()
}
