// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/nextread/nextread/pkg/rankingstore"

	"github.com/nextread/nextread/pkg/prediction"
)

// predictRequest is POST /predict and POST /context's shared body
//.
type predictRequest struct {
	Intent       string   `json:"intent,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
	CurrentFile  string   `json:"current_file,omitempty"`
	Session      string   `json:"session"`
	SnippetLines int      `json:"snippet_lines,omitempty"`
}

func (req predictRequest) toRequest(withSnippets bool) prediction.Request {
	return prediction.Request{
		Intent: req.Intent, Keywords: req.Keywords, CurrentFile: req.CurrentFile,
		Session: req.Session, WithSnippets: withSnippets, SnippetLines: req.SnippetLines,
	}
}

// handlePredict answers POST /predict.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) (any, error) {
	deps, err := s.deps(r)
	if err != nil {
		return nil, err
	}
	var req predictRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	if req.Session == "" {
		return nil, badRequest("session is required", nil)
	}
	if req.Intent == "" && len(req.Keywords) == 0 {
		return nil, badRequest("one of intent or keywords is required", nil)
	}

	result, err := deps.Engine.Predict(r.Context(), req.toRequest(req.SnippetLines > 0), time.Now().Unix())
	if err != nil {
		return nil, internalErr("predict failed", err)
	}
	return result, nil
}

// handleContext answers GET/POST /context: identical to /predict but
// always fetches snippets.
func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) (any, error) {
	deps, err := s.deps(r)
	if err != nil {
		return nil, err
	}
	var req predictRequest
	if r.Method == http.MethodGet {
		q := r.URL.Query()
		req = predictRequest{
			Intent: q.Get("intent"), CurrentFile: q.Get("current_file"), Session: q.Get("session"),
		}
	} else if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	if req.Session == "" {
		return nil, badRequest("session is required", nil)
	}
	if req.SnippetLines <= 0 {
		req.SnippetLines = 0 // Engine.Predict substitutes its own default.
	}

	result, err := deps.Engine.Predict(r.Context(), req.toRequest(true), time.Now().Unix())
	if err != nil {
		return nil, internalErr("predict failed", err)
	}
	return result, nil
}

// predictLogRequest is POST /predict/log's body: a manual prediction
// log entry, mirroring Predict's own step 10 for callers that compute
// candidates themselves.
type predictLogRequest struct {
	Session     string   `json:"session"`
	Fingerprint string   `json:"fingerprint"`
	Arm         int      `json:"arm"`
	Candidates  []string `json:"candidates"`
	CreatedAt   int64    `json:"created_at,omitempty"`
}

func (s *Server) handlePredictLog(w http.ResponseWriter, r *http.Request) (any, error) {
	deps, err := s.deps(r)
	if err != nil {
		return nil, err
	}
	var req predictLogRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	if req.Session == "" {
		return nil, badRequest("session is required", nil)
	}
	now := req.CreatedAt
	if now == 0 {
		now = time.Now().Unix()
	}
	rec := rankingstore.PredictionRecord{
		ID:          fmt.Sprintf("%s-%d", req.Session, time.Now().UnixNano()),
		Session:     req.Session,
		Fingerprint: req.Fingerprint,
		Arm:         req.Arm,
		Candidates:  req.Candidates,
		CreatedAt:   now,
	}
	if err := deps.Store.LogPrediction(r.Context(), deps.Project, rec); err != nil {
		return nil, internalErr("log_prediction failed", err)
	}
	return intentResult{OK: true}, nil
}

// predictCheckRequest is POST /predict/check's body: hit/miss
// attribution for a path access.
type predictCheckRequest struct {
	Session string `json:"session"`
	Path    string `json:"path"`
}

func (s *Server) handlePredictCheck(w http.ResponseWriter, r *http.Request) (any, error) {
	deps, err := s.deps(r)
	if err != nil {
		return nil, err
	}
	var req predictCheckRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	if req.Session == "" || req.Path == "" {
		return nil, badRequest("session and path are required", nil)
	}
	hit, err := deps.Engine.ResolveAccess(r.Context(), req.Session, req.Path, time.Now().Unix())
	if err != nil {
		return nil, internalErr("resolve_access failed", err)
	}
	return map[string]bool{"hit": hit}, nil
}

func (s *Server) handlePredictFinalize(w http.ResponseWriter, r *http.Request) (any, error) {
	deps, err := s.deps(r)
	if err != nil {
		return nil, err
	}
	n, err := deps.Engine.FinalizeStale(r.Context(), time.Now().Unix())
	if err != nil {
		return nil, internalErr("finalize_stale failed", err)
	}
	return map[string]int{"resolved": n}, nil
}

// predictStatsResult is GET /predict/stats' response.
type predictStatsResult struct {
	Hits     int                      `json:"hits"`
	Misses   int                      `json:"misses"`
	HitRate  float64                  `json:"hit_rate"`
	Rolling  prediction.RollingStats  `json:"rolling"`
	Tuner    []prediction.ArmReport   `json:"tuner"`
	CacheLen int                      `json:"cache_len"`
}

func (s *Server) handlePredictStats(w http.ResponseWriter, r *http.Request) (any, error) {
	deps, err := s.deps(r)
	if err != nil {
		return nil, err
	}
	now := time.Now().Unix()
	rolling, err := deps.Engine.RollingStats(r.Context(), now)
	if err != nil {
		return nil, internalErr("rolling stats failed", err)
	}
	misses := rolling.Evaluated - rolling.Hits
	tuner, err := deps.Engine.Tuner().Stats(r.Context())
	if err != nil {
		return nil, internalErr("tuner stats failed", err)
	}
	return predictStatsResult{
		Hits: rolling.Hits, Misses: misses, HitRate: prediction.HitRate(rolling.Hits, misses),
		Rolling: rolling, Tuner: tuner, CacheLen: deps.Engine.CacheLen(),
	}, nil
}
