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

package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/nextread/nextread/pkg/httpapi"
	"github.com/nextread/nextread/pkg/project"
)

// SupervisorConfig is everything OpenSupervisor needs: the process-wide
// project registry, and the configuration for the one project bound to
// the current working directory (the project 'nextread serve' was
// started against, opened eagerly; every other registered project
// opens lazily on first reference).
type SupervisorConfig struct {
	RegistryPath string
	Active       ProjectConfig
	Logger       *slog.Logger
}

// Supervisor owns the projects.json registry and every project it has
// opened so far, satisfying httpapi.Resolver so one HTTP surface can
// dispatch a request to any registered, enabled project by uuid
// ( "All endpoints accept an optional project query
// parameter; when omitted, the active project ... is used").
type Supervisor struct {
	mu       sync.Mutex
	registry *project.Registry
	active   string
	base     ProjectConfig
	logger   *slog.Logger
	opened   map[string]*Project
}

// OpenSupervisor opens (or creates) the registry at cfg.RegistryPath,
// registers the active project if this is its first time being served,
// and opens its full stack eagerly so the returned Supervisor is
// immediately queryable. Other registered projects open lazily through
// Resolve.
func OpenSupervisor(ctx context.Context, cfg SupervisorConfig) (*Supervisor, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reg, err := project.Open(cfg.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open project registry: %w", err)
	}

	entry, ok, err := reg.Find(cfg.Active.Root)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: find project: %w", err)
	}
	if !ok {
		entry, err = reg.Register(cfg.Active.Root)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: register project: %w", err)
		}
	}
	if !entry.Enabled {
		return nil, fmt.Errorf("bootstrap: project %s (%s) is disabled; run 'nextread projects enable %s'", entry.Path, entry.UUID, entry.UUID)
	}

	active, err := Open(ctx, cfg.Active)
	if err != nil {
		return nil, err
	}

	return &Supervisor{
		registry: reg,
		active:   entry.UUID,
		base:     cfg.Active,
		logger:   logger,
		opened:   map[string]*Project{entry.UUID: active},
	}, nil
}

// Active returns the uuid of the project bound to the CWD 'nextread
// serve' was started in.
func (s *Supervisor) Active() string { return s.active }

// Resolve satisfies httpapi.Resolver, opening id's project on first
// reference and caching it for the life of the process.
func (s *Supervisor) Resolve(id string) (httpapi.ProjectDeps, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.opened[id]; ok {
		return p.deps(), nil
	}

	entries, err := s.registry.List()
	if err != nil {
		return httpapi.ProjectDeps{}, fmt.Errorf("bootstrap: list projects: %w", err)
	}
	var entry project.Entry
	found := false
	for _, e := range entries {
		if e.UUID == id {
			entry, found = e, true
			break
		}
	}
	if !found {
		return httpapi.ProjectDeps{}, fmt.Errorf("bootstrap: unknown project %q", id)
	}
	if !entry.Enabled {
		return httpapi.ProjectDeps{}, fmt.Errorf("bootstrap: project %q is disabled", id)
	}

	pf, err := loadProjectFile(entry.Path)
	if err != nil {
		return httpapi.ProjectDeps{}, err
	}

	cfg := s.base
	cfg.ProjectID = pf.ProjectID
	cfg.Root = entry.Path
	cfg.DataDir = pf.DataDir
	cfg.BackendKind = pf.Backend.Kind
	cfg.RedisAddr = pf.Backend.RedisAddr
	cfg.RedisDB = pf.Backend.RedisDB

	p, err := Open(context.Background(), cfg)
	if err != nil {
		return httpapi.ProjectDeps{}, fmt.Errorf("bootstrap: open project %q: %w", id, err)
	}
	s.opened[id] = p
	return p.deps(), nil
}

// Server builds the single HTTP surface that dispatches across every
// project this Supervisor opens.
func (s *Supervisor) Server(logger *slog.Logger) *httpapi.Server {
	srv := httpapi.NewServer(s, logger)
	srv.SetReady(true)
	return srv
}

// Close shuts down every project this Supervisor has opened, returning
// the first error encountered (after attempting every Close, so one
// project's failure never leaves another's state files unflushed).
func (s *Supervisor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for id, p := range s.opened {
		if err := p.Close(); err != nil {
			s.logger.Warn("bootstrap.supervisor.close_failed", "project_id", id, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// projectFile mirrors the subset of cmd/nextread's on-disk
// .nextread/project.yaml schema a Supervisor needs to lazily open a
// registered project it did not start 'nextread serve' in. It
// duplicates rather than imports that schema: cmd/nextread is package
// main and cannot be imported.
type projectFile struct {
	ProjectID string `yaml:"project_id"`
	DataDir   string `yaml:"data_dir"`
	Backend   struct {
		Kind      string `yaml:"kind"`
		RedisAddr string `yaml:"redis_addr,omitempty"`
		RedisDB   int    `yaml:"redis_db,omitempty"`
	} `yaml:"backend"`
}

func loadProjectFile(root string) (projectFile, error) {
	data, err := os.ReadFile(filepath.Join(root, ".nextread", "project.yaml"))
	if err != nil {
		return projectFile{}, fmt.Errorf("bootstrap: read %s's project config: %w", root, err)
	}
	var pf projectFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return projectFile{}, fmt.Errorf("bootstrap: parse %s's project config: %w", root, err)
	}
	return pf, nil
}
