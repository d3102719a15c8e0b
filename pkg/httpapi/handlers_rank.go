// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"net/http"
	"time"

	"github.com/nextread/nextread/pkg/rankingstore"
)

// rankResult is GET /rank's response.
type rankResult struct {
	Files    []string                     `json:"files"`
	Details  []rankingstore.CompositeDetail `json:"details"`
	Weights  rankingstore.Weights         `json:"weights"`
	Arm      int                          `json:"arm"`
	Adaptive bool                         `json:"adaptive"`
	MS       int64                        `json:"ms"`
}

// handleRank answers GET /rank?tag=T&limit=...: the composite ranking
// under the tuner's currently-selected arm.
func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) (any, error) {
	deps, err := s.deps(r)
	if err != nil {
		return nil, err
	}
	tag := r.URL.Query().Get("tag")
	limit := parseLimit(r)
	now := time.Now().Unix()

	sel, err := deps.Engine.Tuner().SelectArm(r.Context())
	if err != nil {
		return nil, internalErr("arm selection failed", err)
	}

	var tags []string
	if tag != "" {
		tags = []string{tag}
	}

	start := time.Now()
	details, err := deps.Store.TopComposite(r.Context(), deps.Project, tags, sel.Weights, "", limit, now)
	if err != nil {
		return nil, internalErr("top_composite failed", err)
	}

	files := make([]string, len(details))
	for i, d := range details {
		files[i] = d.Path
	}

	return rankResult{
		Files: files, Details: details, Weights: sel.Weights, Arm: sel.Index,
		Adaptive: true, MS: time.Since(start).Milliseconds(),
	}, nil
}
