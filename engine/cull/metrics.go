package cull

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeLabel    = "outcome"
	resolutionLabel = "resolution"
)

var (
	passCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chunkcull_pass_total",
		Help: "The number of traversal passes by outcome.",
	}, []string{outcomeLabel})

	passDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chunkcull_pass_duration_seconds",
		Help:    "The wall clock duration of completed traversal passes.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
	})

	visibleRegionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chunkcull_visible_regions",
		Help: "The number of visible regions published by the last pass.",
	})

	needsBuildGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chunkcull_needs_build_regions",
		Help: "The number of regions waiting for an occlusion payload after the last pass.",
	})

	resolutionCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chunkcull_visibility_resolution_total",
		Help: "How region visibility was resolved.",
	}, []string{resolutionLabel})
)

func instrumentPass(outcome string) {
	passCount.
		With(prometheus.Labels{outcomeLabel: outcome}).
		Inc()
}

func instrumentPublish(res *Result) {
	passDuration.Observe(res.Stats.Duration.Seconds())
	visibleRegionsGauge.Set(float64(len(res.Visible)))
	needsBuildGauge.Set(float64(len(res.NeedsBuild)))

	resolutionCount.With(prometheus.Labels{resolutionLabel: "near"}).Add(float64(res.Stats.Near))
	resolutionCount.With(prometheus.Labels{resolutionLabel: "cache_hit"}).Add(float64(res.Stats.CacheHits))
	resolutionCount.With(prometheus.Labels{resolutionLabel: "rasterized"}).Add(float64(res.Stats.Rasterized))
}
