// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matcher_requests_total",
			Help: "Total number of match requests by outcome status",
		},
		[]string{"status"},
	)

	MatchStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "matcher_stage_duration_seconds",
			Help: "Duration of each matching pipeline stage in seconds",
		},
		[]string{"stage"},
	)

	WarehouseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "matcher_warehouse_query_duration_seconds",
			Help: "Duration of warehouse queries in seconds",
		},
		[]string{"query"},
	)

	WarehouseQueryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matcher_warehouse_query_failures_total",
			Help: "Total number of failed warehouse queries",
		},
		[]string{"query", "error_code"},
	)

	DirectorySearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "matcher_directory_search_duration_seconds",
			Help: "Duration of directory searches in seconds",
		},
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matcher_cache_hits_total",
			Help: "Total number of match result cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matcher_cache_misses_total",
			Help: "Total number of match result cache misses",
		},
	)

	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "matcher_active_requests",
			Help: "Number of match requests currently in flight",
		},
	)
)
