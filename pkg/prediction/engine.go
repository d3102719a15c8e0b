// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

// Package prediction implements the Prediction Engine and Online Weight
// Tuner: given an observed intent, it returns a
// small ranked set of paths the host assistant should read next, and it
// measures and tunes its own accuracy over time.
package prediction

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/nextread/nextread/pkg/rankingstore"
	"github.com/nextread/nextread/pkg/symbolindex"
)

// candidateTopK bounds how many candidates TopComposite considers per
// call.
const candidateTopK = 30

// transitionWeight is the small fixed constant applied to the
// transition signal only when a current-file anchor is present.
const transitionWeight = 0.2

// confidenceFloor and showThreshold gate prediction visibility.
const (
	confidenceFloor = 0.40
	showThreshold   = 0.60
)

// referenceMaxHalfLife decays the running composite-score maximum used
// to normalize confidence, so confidence tracks a project's current
// scoring scale rather than an all-time high from early, sparse data.
// Its half-life ("an exponentially-decayed running maximum") is not
// pinned to a number anywhere; 24h chosen as a decision recorded in DESIGN.md.
const referenceMaxHalfLife = 24 * 3600

// snippetDefaultLines is used when a caller asks for snippets without
// specifying a line count.
const snippetDefaultLines = 40

// finalizeGraceSeconds is the default window W after which an
// unresolved prediction is finalized as a miss ( "default 5
// minutes").
const finalizeGraceSeconds = 5 * 60

// Request is the input to Predict, covering both the /predict and
// /context HTTP endpoints.
type Request struct {
	Intent        string
	Keywords      []string
	CurrentFile   string
	Session       string
	WithSnippets  bool
	SnippetLines  int
}

// Candidate is one predicted path in a Result.
type Candidate struct {
	Path       string  `json:"path"`
	Confidence float64 `json:"confidence"`
	Snippet    string  `json:"snippet,omitempty"`
	Visible    bool    `json:"visible"`
}

// Result is Predict's return value.
type Result struct {
	Files         []Candidate `json:"files"`
	TopConfidence float64     `json:"top_confidence"`
	Cached        bool        `json:"cached"`
	Reason        string      `json:"reason,omitempty"`
}

// Engine runs the predict pipeline for one project.
type Engine struct {
	store   *rankingstore.Store
	index   *symbolindex.Index
	tuner   *Tuner
	cache   *IntentCache
	project string

	mu           sync.Mutex
	referenceMax map[string]refMax // keyed by project, single-project Engine keeps one entry
}

type refMax struct {
	value     float64
	updatedAt int64
}

// NewEngine wires an Engine for project over store/index, with its own
// Tuner and IntentCache.
func NewEngine(store *rankingstore.Store, index *symbolindex.Index, project string) *Engine {
	return &Engine{
		store:        store,
		index:        index,
		tuner:        NewTuner(store, project),
		cache:        NewIntentCache(),
		project:      project,
		referenceMax: make(map[string]refMax),
	}
}

// Predict runs the 11-step pipeline of 
func (e *Engine) Predict(ctx context.Context, req Request, now int64) (Result, error) {
	start := time.Now()
	defer func() { observePredictDuration(time.Since(start).Seconds()) }()
	recordPredicted()

	// Step 1: keyword extraction.
	keywords := req.Keywords
	if len(keywords) == 0 && req.Intent != "" {
		keywords = ExtractKeywords(req.Intent)
	}

	// Step 2: keyword -> tag mapping.
	tags := TagsForKeywords(keywords)

	// Step 3: cache probe. Fingerprint is exactly the sorted keyword
	// list — it intentionally ignores the current-
	// file anchor, so a cached prediction for a keyword set is reused
	// across anchors; the anchor only ever adds a small transition term.
	fingerprint := Fingerprint(keywords)
	if cached, ok := e.cache.Get(e.project, fingerprint, now); ok {
		recordCacheHit()
		cached.Cached = true
		return cached, nil
	}
	recordCacheMiss()

	// Step 5: arm selection.
	sel, err := e.tuner.SelectArm(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("prediction: select_arm: %w", err)
	}
	weights := sel.Weights
	weights.Trans = transitionWeight

	// Steps 4 & 6: candidate assembly + composite scoring. TopComposite
	// already unions recency/frequency/tag/transition candidate sources
	// and scores them under the selected weight vector.
	scoreStart := time.Now()
	details, err := e.store.TopComposite(ctx, e.project, tags, weights, req.CurrentFile, candidateTopK, now)
	observeScoreDuration(time.Since(scoreStart).Seconds())
	if err != nil {
		return Result{}, fmt.Errorf("prediction: top_composite: %w", err)
	}

	if len(details) == 0 {
		return Result{Reason: "cold_start"}, nil
	}

	// Step 7: confidence.
	topScore := details[0].Composite
	reference := e.updateReferenceMax(now, topScore)
	confidence := topScore / reference
	if confidence > 1 {
		confidence = 1
	}
	// Step 8: threshold gate.
	if confidence < confidenceFloor {
		recordGated()
		return Result{Reason: "below_floor", TopConfidence: confidence}, nil
	}
	recordShown(confidence)
	visible := confidence >= showThreshold

	candidates := make([]string, 0, len(details))
	files := make([]Candidate, 0, len(details))
	for _, d := range details {
		conf := d.Composite / reference
		if conf > 1 {
			conf = 1
		}
		c := Candidate{Path: d.Path, Confidence: conf, Visible: visible}

		// Step 9: snippet fetch. A read failure omits the snippet but
		// still returns the path.
		if req.WithSnippets {
			n := req.SnippetLines
			if n <= 0 {
				n = snippetDefaultLines
			}
			if snippet, err := e.index.Snippet(d.Path, n); err == nil {
				c.Snippet = snippet
			}
		}
		candidates = append(candidates, d.Path)
		files = append(files, c)
	}

	result := Result{Files: files, TopConfidence: confidence}

	// Step 10: log.
	predID := fmt.Sprintf("%s-%d", req.Session, now)
	rec := rankingstore.PredictionRecord{
		ID: predID, Session: req.Session, Fingerprint: fingerprint,
		Arm: sel.Index, Candidates: candidates, CreatedAt: now,
	}
	if err := e.store.LogPrediction(ctx, e.project, rec); err != nil {
		return Result{}, fmt.Errorf("prediction: log_prediction: %w", err)
	}

	// Step 11: cache.
	e.cache.Put(e.project, fingerprint, result, now)

	return result, nil
}

// ResolveAccess implements hit/miss attribution: if any
// unresolved prediction in session names path, it resolves as a hit and
// its arm gets a positive update. Only the first matching access per
// prediction counts, enforced by ResolvePrediction's idempotence.
func (e *Engine) ResolveAccess(ctx context.Context, session, path string, now int64) (bool, error) {
	pending, err := e.store.UnresolvedInSession(ctx, e.project, session)
	if err != nil {
		return false, err
	}
	hit := false
	for _, rec := range pending {
		if !containsPath(rec.Candidates, path) {
			continue
		}
		if err := e.store.ResolvePrediction(ctx, e.project, rec.ID, true); err != nil {
			return hit, err
		}
		if err := e.tuner.UpdateArm(ctx, rec.Arm, true); err != nil {
			return hit, err
		}
		recordHit()
		hit = true
	}
	return hit, nil
}

// FinalizeStale resolves as miss every prediction older than the
// finalization window still unresolved,
// run on a timer by the prediction-finalization background loop.
func (e *Engine) FinalizeStale(ctx context.Context, now int64) (int, error) {
	n, err := e.store.FinalizeStale(ctx, e.project, now, finalizeGraceSeconds)
	if err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		recordMiss()
	}
	return n, nil
}

// Tuner exposes the Engine's tuner for /tuner/* endpoints.
func (e *Engine) Tuner() *Tuner { return e.tuner }

// CacheLen exposes the intent cache's size for /predict/stats.
func (e *Engine) CacheLen() int { return e.cache.Len() }

// updateReferenceMax decays the stored reference maximum by elapsed time
// since its last update, folds in candidateMax, and returns the new
// value. A reference of zero (first call) falls back to candidateMax
// itself so the very first prediction is never divided by zero.
func (e *Engine) updateReferenceMax(now int64, candidateMax float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev, ok := e.referenceMax[e.project]
	if !ok || prev.value <= 0 {
		e.referenceMax[e.project] = refMax{value: candidateMax, updatedAt: now}
		if candidateMax <= 0 {
			return 1
		}
		return candidateMax
	}

	elapsed := float64(now - prev.updatedAt)
	decayed := prev.value * math.Exp(-math.Ln2*elapsed/referenceMaxHalfLife)
	next := math.Max(decayed, candidateMax)
	e.referenceMax[e.project] = refMax{value: next, updatedAt: now}
	if next <= 0 {
		return 1
	}
	return next
}

func containsPath(paths []string, target string) bool {
	for _, p := range paths {
		if p == target {
			return true
		}
	}
	return false
}
