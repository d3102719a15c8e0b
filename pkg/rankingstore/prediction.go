// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package rankingstore

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PredictionRecord is the hash `pred:{id}` holding one logged prediction.
type PredictionRecord struct {
	ID          string   `json:"id"`
	Session     string   `json:"session"`
	Fingerprint string   `json:"fingerprint"`
	Arm         int      `json:"arm"`
	Candidates  []string `json:"candidates"`
	CreatedAt   int64    `json:"created_at"`
	Resolved    bool     `json:"resolved"`
	Hit         bool     `json:"hit"`
}

func (r PredictionRecord) toFields() map[string]string {
	return map[string]string{
		"session":     r.Session,
		"fingerprint": r.Fingerprint,
		"arm":         strconv.Itoa(r.Arm),
		"candidates":  strings.Join(r.Candidates, "\x1f"),
		"created_at":  itoa(r.CreatedAt),
		"resolved":    strconv.FormatBool(r.Resolved),
		"hit":         strconv.FormatBool(r.Hit),
	}
}

func predictionFromFields(id string, fields map[string]string) (PredictionRecord, bool) {
	if len(fields) == 0 {
		return PredictionRecord{}, false
	}
	arm, _ := strconv.Atoi(fields["arm"])
	var candidates []string
	if c := fields["candidates"]; c != "" {
		candidates = strings.Split(c, "\x1f")
	}
	return PredictionRecord{
		ID:          id,
		Session:     fields["session"],
		Fingerprint: fields["fingerprint"],
		Arm:         arm,
		Candidates:  candidates,
		CreatedAt:   atoi(fields["created_at"]),
		Resolved:    fields["resolved"] == "true",
		Hit:         fields["hit"] == "true",
	}, true
}

// LogPrediction persists a new prediction record and indexes it into
// rolling:preds by creation time for window-scoped metrics.
func (s *Store) LogPrediction(ctx context.Context, project string, rec PredictionRecord) error {
	if err := s.kv.HSet(ctx, predKey(project, rec.ID), rec.toFields()); err != nil {
		return fmt.Errorf("rankingstore: log_prediction: %w", err)
	}
	return s.kv.ZUpsert(ctx, rollingPredsKey(project), rec.ID, float64(rec.CreatedAt))
}

// GetPrediction reads a prediction record by id.
func (s *Store) GetPrediction(ctx context.Context, project, id string) (PredictionRecord, bool, error) {
	fields, err := s.kv.HGetAll(ctx, predKey(project, id))
	if err != nil {
		return PredictionRecord{}, false, err
	}
	rec, ok := predictionFromFields(id, fields)
	return rec, ok, nil
}

// ResolvePrediction marks id resolved with the given hit/miss outcome.
// Exactly one resolution may occur per prediction; a prediction already
// resolved is left untouched.
func (s *Store) ResolvePrediction(ctx context.Context, project, id string, hit bool) error {
	rec, ok, err := s.GetPrediction(ctx, project, id)
	if err != nil {
		return err
	}
	if !ok || rec.Resolved {
		return nil
	}
	rec.Resolved = true
	rec.Hit = hit
	return s.kv.HSet(ctx, predKey(project, id), rec.toFields())
}

// UnresolvedInSession returns every unresolved prediction logged for
// session, most recent first, used by Intent Capture's hit-attribution
// hook.
func (s *Store) UnresolvedInSession(ctx context.Context, project, session string) ([]PredictionRecord, error) {
	ids, err := s.kv.ZTop(ctx, rollingPredsKey(project), 0)
	if err != nil {
		return nil, err
	}
	var out []PredictionRecord
	for _, m := range ids {
		rec, ok, err := s.GetPrediction(ctx, project, m.Key)
		if err != nil {
			return nil, err
		}
		if ok && !rec.Resolved && rec.Session == session {
			out = append(out, rec)
		}
	}
	return out, nil
}

// FinalizeStale resolves as `miss` every prediction older than
// (now - graceSeconds) still unresolved, preventing pending records from
// inflating hit-rate.
func (s *Store) FinalizeStale(ctx context.Context, project string, now, graceSeconds int64) (int, error) {
	stale, err := s.kv.ZRangeByScore(ctx, rollingPredsKey(project), 0, float64(now-graceSeconds))
	if err != nil {
		return 0, err
	}
	finalized := 0
	for _, m := range stale {
		rec, ok, err := s.GetPrediction(ctx, project, m.Key)
		if err != nil {
			return finalized, err
		}
		if !ok || rec.Resolved {
			continue
		}
		if err := s.ResolvePrediction(ctx, project, m.Key, false); err != nil {
			return finalized, err
		}
		finalized++
	}
	return finalized, nil
}

// RollingPredictions returns every prediction logged within the last
// windowSeconds, used by the rolling hit-rate and trend metrics.
func (s *Store) RollingPredictions(ctx context.Context, project string, now, windowSeconds int64) ([]PredictionRecord, error) {
	members, err := s.kv.ZRangeByScore(ctx, rollingPredsKey(project), float64(now-windowSeconds), float64(now))
	if err != nil {
		return nil, err
	}
	out := make([]PredictionRecord, 0, len(members))
	for _, m := range members {
		rec, ok, err := s.GetPrediction(ctx, project, m.Key)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// PrunePredictionsOlderThan drops prediction records (and their
// rolling:preds membership) older than now-retainSeconds, run by the
// cache-eviction loop so the log does not grow without bound.
func (s *Store) PrunePredictionsOlderThan(ctx context.Context, project string, now, retainSeconds int64) (int, error) {
	stale, err := s.kv.ZRangeByScore(ctx, rollingPredsKey(project), 0, float64(now-retainSeconds))
	if err != nil {
		return 0, err
	}
	for _, m := range stale {
		if err := s.kv.HDel(ctx, predKey(project, m.Key)); err != nil {
			return 0, err
		}
		if err := s.kv.ZRem(ctx, rollingPredsKey(project), m.Key); err != nil {
			return 0, err
		}
	}
	return len(stale), nil
}

// armKey and the arm-state verbs below back pkg/prediction's Thompson
// sampler; they live here (not in pkg/prediction) because every other
// verb in this file already owns the kv.Store, and the arm hashes share
// its project namespacing and atomicity guarantees.
func armKey(project string, k int) string {
	return ns(project, "tuner:arm:"+strconv.Itoa(k))
}

// ArmState is the Beta(alpha, beta) posterior for one tuner arm.
type ArmState struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
}

// armOverflowCap bounds alpha/beta so a long-running arm never
// overflows float64 precision, without changing the ratio between the two.
const armOverflowCap = 1e6

// ArmStates returns the current Beta posterior for every arm in
// [0, numArms).
func (s *Store) ArmStates(ctx context.Context, project string, numArms int) ([]ArmState, error) {
	out := make([]ArmState, numArms)
	for k := 0; k < numArms; k++ {
		fields, err := s.kv.HGetAll(ctx, armKey(project, k))
		if err != nil {
			return nil, err
		}
		alpha, beta := 1.0, 1.0
		if a, ok := fields["alpha"]; ok {
			alpha = parseFloat(a, 1)
		}
		if b, ok := fields["beta"]; ok {
			beta = parseFloat(b, 1)
		}
		out[k] = ArmState{Alpha: alpha, Beta: beta}
	}
	return out, nil
}

// UpdateArm applies a hit (alpha += 1) or miss (beta += 1) to arm k. If
// either field would cross armOverflowCap, both are rescaled by the
// same factor so the posterior's alpha:beta ratio is preserved instead
// of one field silently saturating against the other.
func (s *Store) UpdateArm(ctx context.Context, project string, k int, hit bool) error {
	states, err := s.ArmStates(ctx, project, k+1)
	if err != nil {
		return err
	}
	state := states[k]
	if hit {
		state.Alpha++
	} else {
		state.Beta++
	}
	if state.Alpha > armOverflowCap || state.Beta > armOverflowCap {
		scale := armOverflowCap / math.Max(state.Alpha, state.Beta)
		state.Alpha *= scale
		state.Beta *= scale
	}
	return s.kv.HSet(ctx, armKey(project, k), map[string]string{
		"alpha": formatFloat(state.Alpha),
		"beta":  formatFloat(state.Beta),
	})
}

// ResetArms resets every arm in [0, numArms) to Beta(1,1).
func (s *Store) ResetArms(ctx context.Context, project string, numArms int) error {
	for k := 0; k < numArms; k++ {
		if err := s.kv.HSet(ctx, armKey(project, k), map[string]string{
			"alpha": "1", "beta": "1",
		}); err != nil {
			return err
		}
	}
	return nil
}

// ResetArm resets a single arm to Beta(1,1).
func (s *Store) ResetArm(ctx context.Context, project string, k int) error {
	return s.kv.HSet(ctx, armKey(project, k), map[string]string{"alpha": "1", "beta": "1"})
}

func parseFloat(s string, fallback float64) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return v
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
