// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"net/http"
	"time"

	"github.com/nextread/nextread/pkg/prediction"
)

// targetHitAt5 is the project-independent hit-rate goal GET /metrics
// reports a gap against. Chosen to match the "show" confidence threshold
// as the point past which a prediction is considered trustworthy enough to act on.
const targetHitAt5 = 0.60

// metricsResult is GET /metrics' response: a unified object combining
// the rolling window, the tuner's arm table, and process-lifetime
// cumulative counters. The underlying counters and
// histograms are registered with Prometheus's default registry, but no
// route serves the exposition format; this body is their only view.
type metricsResult struct {
	HitAt5     float64                    `json:"hit_at_5"`
	Target     float64                    `json:"target"`
	Gap        float64                    `json:"gap"`
	Trend      string                     `json:"trend"`
	Rolling    prediction.RollingStats    `json:"rolling"`
	Tuner      []prediction.ArmReport     `json:"tuner"`
	Cumulative prediction.LegacyCumulative `json:"legacy_cumulative"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) (any, error) {
	deps, err := s.deps(r)
	if err != nil {
		return nil, err
	}
	now := time.Now().Unix()
	rolling, err := deps.Engine.RollingStats(r.Context(), now)
	if err != nil {
		return nil, internalErr("rolling stats failed", err)
	}
	tuner, err := deps.Engine.Tuner().Stats(r.Context())
	if err != nil {
		return nil, internalErr("tuner stats failed", err)
	}
	return metricsResult{
		HitAt5: rolling.HitAt5, Target: targetHitAt5, Gap: targetHitAt5 - rolling.HitAt5,
		Trend: rolling.Trend, Rolling: rolling, Tuner: tuner, Cumulative: prediction.Cumulative(),
	}, nil
}
