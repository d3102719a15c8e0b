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

// Package bootstrap wires one project's process-wide state: the
// Ranking Store backend, the Symbol Index (initial walk plus live
// watcher), the Prediction Engine and its tuner, the intent capture
// pipeline, and the HTTP server that fronts them.
//
// # Opening a project
//
//	proj, err := bootstrap.Open(ctx, bootstrap.ProjectConfig{
//	    ProjectID:   cfg.ProjectID,
//	    Root:        root,
//	    DataDir:     cfg.DataDir,
//	    BackendKind: cfg.Backend.Kind,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer proj.Close()
//
// Open performs the Symbol Index's initial sweep synchronously, so
// proj.Server is queryable as soon as Open returns, then starts the
// file watcher and the maintenance loops below in the background.
//
// # Serving multiple projects
//
// A running 'nextread serve' process fronts every project registered
// in pkg/project's projects.json, not just the one bound to its
// current directory. OpenSupervisor opens the current-directory
// project as above, then lazily opens any other registered project on
// first request, dispatching by the HTTP `project` query parameter:
//
//	sup, err := bootstrap.OpenSupervisor(ctx, bootstrap.SupervisorConfig{
//	    RegistryPath: RegistryPath(),
//	    Active:       bootstrap.ProjectConfig{...},
//	})
//	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: sup.Server(logger)}
//
// # Background loops
//
// Open schedules three supervised loops: the Symbol Index's live
// filesystem watcher (via golang.org/x/sync/errgroup), the
// prediction-finalization and cache-eviction loops (via
// github.com/robfig/cron/v3), and a periodic index snapshot save. A
// single Close stops all of them, saves a final snapshot, and closes
// the backend exactly once.
package bootstrap
