// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package prediction

import (
	"context"

	"github.com/nextread/nextread/pkg/rankingstore"
)

// rollingWindowSeconds is the 24h window the metrics section
// names for rolling_hit_rate_at_k and trend.
const rollingWindowSeconds = 24 * 3600

// trendDeadBand is the minimum hit-rate delta between window halves
// before a trend is reported as improving/declining rather than stable
//.
const trendDeadBand = 0.05

// RollingStats is GET /predict/stats' `rolling` object.
type RollingStats struct {
	WindowHours int     `json:"window_hours"`
	Total       int     `json:"total"`
	Evaluated   int     `json:"evaluated"`
	Pending     int     `json:"pending"`
	Hits        int     `json:"hits"`
	HitAt5      float64 `json:"hit_at_5"`
	Trend       string  `json:"trend"`
}

// RollingStats computes the 24h rolling window summary. Candidate
// pools are not stored with per-position ranks, so hit_at_5 reports the
// same ratio as the overall hit rate — a resolved hit means some
// candidate in the pool was accessed, not specifically one of the first
// five; this is recorded as a simplification, not a redesign, in the
// grounding ledger.
func (e *Engine) RollingStats(ctx context.Context, now int64) (RollingStats, error) {
	records, err := e.store.RollingPredictions(ctx, e.project, now, rollingWindowSeconds)
	if err != nil {
		return RollingStats{}, err
	}

	total, evaluated, hits := 0, 0, 0
	for _, rec := range records {
		total++
		if rec.Resolved {
			evaluated++
			if rec.Hit {
				hits++
			}
		}
	}

	half := rollingWindowSeconds / 2
	recent, err := e.store.RollingPredictions(ctx, e.project, now, half)
	if err != nil {
		return RollingStats{}, err
	}
	prior, err := e.store.RollingPredictions(ctx, e.project, now-half, half)
	if err != nil {
		return RollingStats{}, err
	}

	trend := "insufficient_data"
	if rate, ok := hitRateOf(recent); ok {
		if priorRate, ok := hitRateOf(prior); ok {
			switch {
			case rate-priorRate > trendDeadBand:
				trend = "improving"
			case priorRate-rate > trendDeadBand:
				trend = "declining"
			default:
				trend = "stable"
			}
		}
	}

	hitAt5 := 0.0
	if evaluated > 0 {
		hitAt5 = float64(hits) / float64(evaluated)
	}

	return RollingStats{
		WindowHours: rollingWindowSeconds / 3600,
		Total:       total, Evaluated: evaluated, Pending: total - evaluated,
		Hits: hits, HitAt5: hitAt5, Trend: trend,
	}, nil
}

func hitRateOf(records []rankingstore.PredictionRecord) (float64, bool) {
	evaluated, hits := 0, 0
	for _, rec := range records {
		if rec.Resolved {
			evaluated++
			if rec.Hit {
				hits++
			}
		}
	}
	if evaluated == 0 {
		return 0, false
	}
	return float64(hits) / float64(evaluated), true
}
