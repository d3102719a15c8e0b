// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package prediction

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// metricsPrediction holds Prometheus metrics for the prediction engine.
type metricsPrediction struct {
	once sync.Once

	predictionsTotal prometheus.Counter
	predictionsShown prometheus.Counter
	predictionsGated prometheus.Counter
	hitsTotal        prometheus.Counter
	missesTotal      prometheus.Counter
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter

	scoreDuration    prometheus.Histogram
	predictDuration  prometheus.Histogram
	confidence       prometheus.Histogram
}

var predMetrics metricsPrediction

func (m *metricsPrediction) init() {
	m.once.Do(func() {
		m.predictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "nextread_predictions_total", Help: "Predictions computed by the engine"})
		m.predictionsShown = prometheus.NewCounter(prometheus.CounterOpts{Name: "nextread_predictions_shown_total", Help: "Predictions surfaced above the confidence threshold"})
		m.predictionsGated = prometheus.NewCounter(prometheus.CounterOpts{Name: "nextread_predictions_gated_total", Help: "Predictions suppressed by the confidence gate"})
		m.hitsTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "nextread_prediction_hits_total", Help: "Predictions resolved as hits"})
		m.missesTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "nextread_prediction_misses_total", Help: "Predictions resolved as misses"})
		m.cacheHits = prometheus.NewCounter(prometheus.CounterOpts{Name: "nextread_prediction_cache_hits_total", Help: "Intent cache hits"})
		m.cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{Name: "nextread_prediction_cache_misses_total", Help: "Intent cache misses"})

		buckets := []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}
		m.scoreDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "nextread_score_seconds", Help: "Duration of composite scoring", Buckets: buckets})
		m.predictDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "nextread_predict_seconds", Help: "Duration of the full predict pipeline", Buckets: buckets})
		m.confidence = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "nextread_prediction_confidence", Help: "Top-candidate confidence of predictions that pass the confidence floor", Buckets: prometheus.LinearBuckets(0, 0.1, 11)})

		prometheus.MustRegister(
			m.predictionsTotal, m.predictionsShown, m.predictionsGated,
			m.hitsTotal, m.missesTotal,
			m.cacheHits, m.cacheMisses,
			m.scoreDuration, m.predictDuration, m.confidence,
		)
	})
}

func recordPredicted()      { predMetrics.init(); predMetrics.predictionsTotal.Inc() }
func recordShown(conf float64) {
	predMetrics.init()
	predMetrics.predictionsShown.Inc()
	predMetrics.confidence.Observe(conf)
}
func recordGated() { predMetrics.init(); predMetrics.predictionsGated.Inc() }
func recordHit()   { predMetrics.init(); predMetrics.hitsTotal.Inc() }
func recordMiss()  { predMetrics.init(); predMetrics.missesTotal.Inc() }
func recordCacheHit()  { predMetrics.init(); predMetrics.cacheHits.Inc() }
func recordCacheMiss() { predMetrics.init(); predMetrics.cacheMisses.Inc() }

func observeScoreDuration(seconds float64)   { predMetrics.init(); predMetrics.scoreDuration.Observe(seconds) }
func observePredictDuration(seconds float64) { predMetrics.init(); predMetrics.predictDuration.Observe(seconds) }

// HitRate reports hit/(hit+miss) over the rolling prediction log, used
// by GET /predict/stats.
func HitRate(hits, misses int) float64 {
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

// LegacyCumulative is GET /metrics' "legacy cumulative" field: the
// process-lifetime counters, as opposed to the 24h rolling window the
// rest of the response covers.
type LegacyCumulative struct {
	Predictions int64 `json:"predictions_total"`
	Shown       int64 `json:"shown_total"`
	Gated       int64 `json:"gated_total"`
	Hits        int64 `json:"hits_total"`
	Misses      int64 `json:"misses_total"`
	CacheHits   int64 `json:"cache_hits_total"`
	CacheMisses int64 `json:"cache_misses_total"`
}

// Cumulative reads the process-lifetime Prometheus counters back out
// for the JSON body GET /metrics returns; no route serves the raw
// exposition format.
func Cumulative() LegacyCumulative {
	predMetrics.init()
	return LegacyCumulative{
		Predictions: snapshotCounter(predMetrics.predictionsTotal),
		Shown:       snapshotCounter(predMetrics.predictionsShown),
		Gated:       snapshotCounter(predMetrics.predictionsGated),
		Hits:        snapshotCounter(predMetrics.hitsTotal),
		Misses:      snapshotCounter(predMetrics.missesTotal),
		CacheHits:   snapshotCounter(predMetrics.cacheHits),
		CacheMisses: snapshotCounter(predMetrics.cacheMisses),
	}
}

func snapshotCounter(c prometheus.Counter) int64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return int64(m.GetCounter().GetValue())
}
