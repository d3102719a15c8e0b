// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

// Package httpapi serves the local HTTP surface nextread exposes: the
// CLI and host-assistant hooks are both thin clients of this one
// localhost-only port.
package httpapi

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nextread/nextread/pkg/intentcapture"
	"github.com/nextread/nextread/pkg/prediction"
	"github.com/nextread/nextread/pkg/rankingstore"
	"github.com/nextread/nextread/pkg/symbolindex"
)

// ProjectDeps bundles one project's store/index/engine/pipeline, the
// unit every handler needs to answer a request. A Server never holds
// these directly; it asks its Resolver for them per request, since the
// same HTTP surface fronts every project the registry knows about.
type ProjectDeps struct {
	Store    *rankingstore.Store
	Index    *symbolindex.Index
	Engine   *prediction.Engine
	Pipeline *intentcapture.Pipeline
	Project  string
}

// Resolver maps a project identifier (the registry uuid) onto that
// project's live dependencies, opening it on first reference if the
// implementation chooses to do so lazily. Active names the project
// used when a request's `project` query parameter is omitted.
type Resolver interface {
	Resolve(project string) (ProjectDeps, error)
	Active() string
}

// staticResolver implements Resolver over a single, already-open
// project; it is what single-project callers (tests, an embedder that
// wants no multi-project registry at all) wire into NewServer.
type staticResolver struct {
	deps ProjectDeps
}

// NewStaticResolver returns a Resolver that always answers with deps,
// regardless of the project query parameter. Use this when only one
// project will ever be served by this process.
func NewStaticResolver(store *rankingstore.Store, index *symbolindex.Index, engine *prediction.Engine, pipeline *intentcapture.Pipeline, project string) Resolver {
	return staticResolver{deps: ProjectDeps{Store: store, Index: index, Engine: engine, Pipeline: pipeline, Project: project}}
}

func (r staticResolver) Resolve(string) (ProjectDeps, error) { return r.deps, nil }
func (r staticResolver) Active() string                      { return r.deps.Project }

// Server holds the Resolver shared by every handler. Server itself
// carries no per-request state and is safe for concurrent use.
type Server struct {
	resolver Resolver
	logger   *slog.Logger

	ready     atomic.Bool
	startedAt time.Time
}

// NewServer wires a Server over resolver. logger defaults to
// slog.Default() if nil.
func NewServer(resolver Resolver, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{resolver: resolver, logger: logger, startedAt: time.Now()}
}

// SetReady flips the readiness flag GET /health reports, set once the
// Symbol Index's initial sweep completes.
func (s *Server) SetReady(v bool) { s.ready.Store(v) }

// deps resolves the project a request targets: the `project` query
// parameter if given, otherwise the resolver's active project.
func (s *Server) deps(r *http.Request) (ProjectDeps, error) {
	id := r.URL.Query().Get("project")
	if id == "" {
		id = s.resolver.Active()
	}
	d, err := s.resolver.Resolve(id)
	if err != nil {
		return ProjectDeps{}, notFound("unknown project "+id, err)
	}
	return d, nil
}

// Router builds the chi router the table describes, bound to
// 127.0.0.1 only by the caller's listener address.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(localOnly)

	r.Get("/health", s.wrap(s.handleHealth))
	r.Get("/metrics", s.wrap(s.handleMetrics))

	r.Group(func(r chi.Router) {
		r.Use(withTimeout(queryTimeout))
		r.Get("/symbol", s.wrap(s.handleSymbol))
		r.Get("/multi", s.wrap(s.handleMulti))
		r.Get("/rank", s.wrap(s.handleRank))
		r.Get("/tuner/weights", s.wrap(s.handleTunerWeights))
		r.Get("/tuner/best", s.wrap(s.handleTunerBest))
		r.Get("/tuner/stats", s.wrap(s.handleTunerStats))
		r.Post("/tuner/feedback", s.wrap(s.handleTunerFeedback))
		r.Post("/tuner/reset", s.wrap(s.handleTunerReset))
		r.Post("/intent", s.wrap(s.handleIntent))
		r.Post("/predict/log", s.wrap(s.handlePredictLog))
		r.Post("/predict/check", s.wrap(s.handlePredictCheck))
		r.Post("/predict/finalize", s.wrap(s.handlePredictFinalize))
		r.Get("/predict/stats", s.wrap(s.handlePredictStats))
	})

	r.Group(func(r chi.Router) {
		r.Use(withTimeout(scanTimeout))
		r.Post("/pattern", s.wrap(s.handlePattern))
		r.Post("/predict", s.wrap(s.handlePredict))
		r.Get("/context", s.wrap(s.handleContext))
		r.Post("/context", s.wrap(s.handleContext))
	})

	return r
}
