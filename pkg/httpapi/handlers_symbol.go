// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nextread/nextread/internal/contract"
	"github.com/nextread/nextread/pkg/symbolindex"
)

const defaultLimit = 20

// symbolResult is the shared response shape for /symbol and /multi
//.
type symbolResult struct {
	Results   []symbolindex.Result `json:"results"`
	MS        int64                `json:"ms"`
	Truncated bool                 `json:"truncated"`
}

func parseLimit(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultLimit
}

// handleSymbol answers GET /symbol?q=...&limit=....
func (s *Server) handleSymbol(w http.ResponseWriter, r *http.Request) (any, error) {
	deps, err := s.deps(r)
	if err != nil {
		return nil, err
	}
	q := r.URL.Query().Get("q")
	limit := parseLimit(r)

	start := time.Now()
	results, truncated, err := deps.Index.Symbol(q, limit)
	if err != nil {
		return nil, internalErr("symbol query failed", err)
	}
	return symbolResult{Results: results, MS: time.Since(start).Milliseconds(), Truncated: truncated}, nil
}

// handleMulti answers GET /multi?q=a+b+c&mode=and|or&limit=...
// mode=or (the default) behaves exactly like /symbol since
// Symbol already unions every query token; mode=and requires every
// token present.
func (s *Server) handleMulti(w http.ResponseWriter, r *http.Request) (any, error) {
	deps, err := s.deps(r)
	if err != nil {
		return nil, err
	}
	q := r.URL.Query().Get("q")
	mode := r.URL.Query().Get("mode")
	limit := parseLimit(r)

	start := time.Now()
	var results []symbolindex.Result
	var truncated bool
	if mode == "and" {
		tokens := strings.Fields(q)
		results, truncated, err = deps.Index.MultiAND(tokens, limit)
	} else {
		results, truncated, err = deps.Index.Symbol(q, limit)
	}
	if err != nil {
		if errors.Is(err, symbolindex.ErrBadQuery) {
			return nil, badQuery("empty multi-AND query", err)
		}
		return nil, internalErr("multi query failed", err)
	}
	return symbolResult{Results: results, MS: time.Since(start).Milliseconds(), Truncated: truncated}, nil
}

// patternRequest is POST /pattern's body.
type patternRequest struct {
	Patterns []string `json:"patterns"`
	Since    string   `json:"since,omitempty"`
}

// patternResult is /pattern's response: the working-set regex matches
// plus how many paths were actually scanned.
type patternResult struct {
	Results      []symbolindex.Match `json:"results"`
	MS           int64               `json:"ms"`
	Truncated    bool                `json:"truncated"`
	ScannedPaths int                 `json:"scanned_paths"`
}

// handlePattern answers POST /pattern: regex scans over the bounded
// working set, optionally restricted to paths touched at or after
// `since`.
func (s *Server) handlePattern(w http.ResponseWriter, r *http.Request) (any, error) {
	deps, err := s.deps(r)
	if err != nil {
		return nil, err
	}
	var req patternRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	if v := contract.ValidatePatternCount(len(req.Patterns)); !v.OK {
		return nil, badQuery(v.Message, nil)
	}

	paths := deps.Index.WorkingSet()
	if req.Since != "" {
		d, err := time.ParseDuration(req.Since)
		if err != nil {
			return nil, badRequest("since is not a valid duration", err)
		}
		paths = s.filterSince(r.Context(), deps, paths, d)
	}

	start := time.Now()
	var all []symbolindex.Match
	truncated := false
	for _, pattern := range req.Patterns {
		matches, t, err := deps.Index.RegexIn(r.Context(), pattern, paths, 0)
		if err != nil {
			if errors.Is(err, symbolindex.ErrBadQuery) {
				return nil, badQuery("invalid regex: "+pattern, err)
			}
			return nil, internalErr("pattern scan failed", err)
		}
		all = append(all, matches...)
		truncated = truncated || t
	}
	return patternResult{Results: all, MS: time.Since(start).Milliseconds(), Truncated: truncated, ScannedPaths: len(paths)}, nil
}

// filterSince keeps only paths whose last recorded access is at or
// after now-d. A path with no recorded access is dropped.
func (s *Server) filterSince(ctx context.Context, deps ProjectDeps, paths []string, d time.Duration) []string {
	now := time.Now().Unix()
	cutoff := now - int64(d.Seconds())
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		last, ok, err := deps.Store.LastAccess(ctx, deps.Project, p)
		if err != nil || !ok || last < cutoff {
			continue
		}
		out = append(out, p)
	}
	return out
}
