// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package rankingstore is the only write/read path for recency,
// frequency, tag affinity, transitions, session sequences, prediction
// records, and tuner state. Every other component reaches
// the underlying key/value store exclusively through the verbs here.
package rankingstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/nextread/nextread/pkg/rankingstore/kv"
)

// maxTransitionsPerOrigin bounds `trans:A` so a heavily-visited path
// never grows its destination set without limit ( "capped to
// top-N per A to bound memory").
const maxTransitionsPerOrigin = 50

// transitionWindowSeconds is the maximum gap between two accesses for
// them to count as a transition.
const transitionWindowSeconds = 300

// Store implements the Ranking Store's public verbs over a kv.Store. It
// is namespaced per project so independent projects never collide
//.
type Store struct {
	kv kv.Store
}

// New wraps a kv.Store with the Ranking Store's domain verbs.
func New(store kv.Store) *Store {
	return &Store{kv: store}
}

func (s *Store) Close() error { return s.kv.Close() }

func recencyKey(project string) string   { return ns(project, "recency") }
func frequencyKey(project string) string { return ns(project, "frequency") }
func tagKey(project, tag string) string  { return ns(project, "tag:"+tag) }
func pathTagsKey(project, path string) string {
	return ns(project, "pathtags:"+path)
}
func transKey(project, from string) string { return ns(project, "trans:"+from) }
func seqKey(project, session string) string {
	return ns(project, "seq:"+session)
}
func predKey(project, id string) string {
	return ns(project, "pred:"+id)
}
func rollingPredsKey(project string) string { return ns(project, "rolling:preds") }

func ns(project, key string) string {
	if project == "" {
		return key
	}
	return project + ":" + key
}

// RecordAccess upserts recency to now, increments frequency, and for
// each tag increments that tag's affinity for path and records the
// path→tags relationship.
func (s *Store) RecordAccess(ctx context.Context, project, path string, tags []string, now int64) error {
	if err := s.kv.ZUpsert(ctx, recencyKey(project), path, float64(now)); err != nil {
		return fmt.Errorf("rankingstore: record_access recency: %w", err)
	}
	if _, err := s.kv.ZIncrBy(ctx, frequencyKey(project), path, 1); err != nil {
		return fmt.Errorf("rankingstore: record_access frequency: %w", err)
	}
	for _, tag := range tags {
		if _, err := s.kv.ZIncrBy(ctx, tagKey(project, tag), path, 1); err != nil {
			return fmt.Errorf("rankingstore: record_access tag %q: %w", tag, err)
		}
		if err := s.kv.SAdd(ctx, pathTagsKey(project, path), tag); err != nil {
			return fmt.Errorf("rankingstore: record_access path tags %q: %w", tag, err)
		}
	}
	return nil
}

// PathTags returns every tag recorded against path.
func (s *Store) PathTags(ctx context.Context, project, path string) ([]string, error) {
	return s.kv.SMembers(ctx, pathTagsKey(project, path))
}

// LastAccess returns the recency timestamp for path, or ok=false if
// path has never been recorded.
func (s *Store) LastAccess(ctx context.Context, project, path string) (int64, bool, error) {
	score, err := s.kv.ZScore(ctx, recencyKey(project), path)
	if err == kv.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return int64(score), true, nil
}

// RecordTransition increments trans:from[to] only if to != from and the
// gap since from's last access is within the transition window, then
// caps trans:from to its top N destinations.
func (s *Store) RecordTransition(ctx context.Context, project, from, to string, now int64) error {
	if from == "" || to == "" || from == to {
		return nil
	}
	lastFrom, ok, err := s.LastAccess(ctx, project, from)
	if err != nil {
		return err
	}
	if !ok || now-lastFrom > transitionWindowSeconds {
		return nil
	}
	if _, err := s.kv.ZIncrBy(ctx, transKey(project, from), to, 1); err != nil {
		return fmt.Errorf("rankingstore: record_transition: %w", err)
	}
	return s.kv.ZTrimToTop(ctx, transKey(project, from), maxTransitionsPerOrigin)
}

// TopByTag returns the top-k paths by affinity for tag.
func (s *Store) TopByTag(ctx context.Context, project, tag string, k int) ([]kv.Member, error) {
	return s.kv.ZTop(ctx, tagKey(project, tag), k)
}

// TransitionsFrom returns the top-k destinations by transition score
// from path.
func (s *Store) TransitionsFrom(ctx context.Context, project, path string, k int) ([]kv.Member, error) {
	return s.kv.ZTop(ctx, transKey(project, path), k)
}

// Weights is a candidate scoring weight vector; Trans is only applied
// when the caller supplies a current-file anchor.
type Weights struct {
	Recency   float64 `json:"recency"`
	Frequency float64 `json:"frequency"`
	Tag       float64 `json:"tag"`
	Trans     float64 `json:"trans"`
}

// CompositeDetail is one candidate's normalized signal breakdown,
// returned alongside its composite score for the /rank endpoint.
type CompositeDetail struct {
	Path       string  `json:"path"`
	Recency    float64 `json:"recency"`
	Frequency  float64 `json:"frequency"`
	Tag        float64 `json:"tag"`
	Transition float64 `json:"transition"`
	Composite  float64 `json:"composite"`
}

// TopComposite scores every candidate that appears in recency,
// frequency, or any of tags under Σ weights_i · signal_i, each signal
// normalized to [0,1], and returns the top-k by composite score
// descending.
//
// anchor, if non-empty, additionally scores each candidate's transition
// signal from anchor using weights.Trans.
func (s *Store) TopComposite(ctx context.Context, project string, tags []string, weights Weights, anchor string, k int, now int64) ([]CompositeDetail, error) {
	candidates := make(map[string]struct{})

	recencyTop, err := s.kv.ZTop(ctx, recencyKey(project), 0)
	if err != nil {
		return nil, err
	}
	recencyByPath := make(map[string]float64, len(recencyTop))
	for _, m := range recencyTop {
		recencyByPath[m.Key] = m.Score
		candidates[m.Key] = struct{}{}
	}

	freqTop, err := s.kv.ZTop(ctx, frequencyKey(project), 0)
	if err != nil {
		return nil, err
	}
	freqByPath := make(map[string]float64, len(freqTop))
	for _, m := range freqTop {
		freqByPath[m.Key] = m.Score
		candidates[m.Key] = struct{}{}
	}

	tagByPath := make(map[string]float64)
	tagMax := 0.0
	for _, tag := range tags {
		top, err := s.kv.ZTop(ctx, tagKey(project, tag), 0)
		if err != nil {
			return nil, err
		}
		for _, m := range top {
			candidates[m.Key] = struct{}{}
			if m.Score > tagByPath[m.Key] {
				tagByPath[m.Key] = m.Score
			}
			if m.Score > tagMax {
				tagMax = m.Score
			}
		}
	}

	var transByPath map[string]float64
	transTotal := 0.0
	if anchor != "" {
		transByPath = make(map[string]float64)
		top, err := s.kv.ZTop(ctx, transKey(project, anchor), 0)
		if err != nil {
			return nil, err
		}
		for _, m := range top {
			candidates[m.Key] = struct{}{}
			transByPath[m.Key] = m.Score
			transTotal += m.Score
		}
	}

	out := make([]CompositeDetail, 0, len(candidates))
	for path := range candidates {
		var lastAccess int64
		if score, ok := recencyByPath[path]; ok {
			lastAccess = int64(score)
		}
		rec := recencySignal(now, lastAccess)
		freq := frequencySignal(freqByPath[path])
		tg := tagSignal(tagByPath[path], tagMax)
		tr := 0.0
		if anchor != "" {
			tr = transitionSignal(transByPath[path], transTotal)
		}

		composite := weights.Recency*rec + weights.Frequency*freq + weights.Tag*tg
		if anchor != "" {
			composite += weights.Trans * tr
		}

		out = append(out, CompositeDetail{
			Path: path, Recency: rec, Frequency: freq, Tag: tg,
			Transition: tr, Composite: composite,
		})
	}

	sortCompositeDesc(out)
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func sortCompositeDesc(out []CompositeDetail) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Composite != out[j].Composite {
			return out[i].Composite > out[j].Composite
		}
		return out[i].Path < out[j].Path
	})
}
