package wfs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aidd",
		Subsystem: "wfs",
		Name:      "cache_hits_total",
		Help:      "Tile cache hits.",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aidd",
		Subsystem: "wfs",
		Name:      "cache_misses_total",
		Help:      "Tile cache misses.",
	})
	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "aidd",
		Subsystem: "wfs",
		Name:      "fetch_duration_seconds",
		Help:      "Duration of WFS GetFeature requests by layer.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"layer"})
	fetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aidd",
		Subsystem: "wfs",
		Name:      "fetch_errors_total",
		Help:      "Failed WFS GetFeature requests by layer.",
	}, []string{"layer"})
)
