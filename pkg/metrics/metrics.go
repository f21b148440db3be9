// Package metrics exposes Prometheus instrumentation for the two
// long-running core operations: a graph build (C5) and a routing query
// (C7). Nothing in hikecore starts an HTTP listener to serve these —
// wiring a /metrics endpoint is left to the embedding application,
// matching the core's "no network endpoints" contract.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace prefixes every metric name below.
	Namespace = "hikecore"
)

var (
	// BuildStageDuration records how long each graph-builder stage took.
	BuildStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    Namespace + "_build_stage_duration_seconds",
			Help:    "Duration of each graph-builder stage",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"stage"},
	)

	// BuildEdgesTotal counts routing edges written by a graph build.
	BuildEdgesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: Namespace + "_build_edges_total",
			Help: "Total number of routing edges written across all builds",
		},
	)

	// RouteSearchDuration records A* wall-clock time per search.
	RouteSearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    Namespace + "_route_search_duration_seconds",
			Help:    "Duration of an A* search",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"mode"},
	)

	// RouteNodesExpanded records how many nodes an A* search dequeued.
	RouteNodesExpanded = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    Namespace + "_route_nodes_expanded",
			Help:    "Number of nodes expanded (dequeued) during an A* search",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000},
		},
		[]string{"mode"},
	)

	// RouteNotFoundTotal counts searches that exhausted the open set.
	RouteNotFoundTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: Namespace + "_route_not_found_total",
			Help: "Total number of A* searches that found no route",
		},
		[]string{"mode"},
	)

	// ElevationCacheHits / ElevationCacheMisses track the HGT tile LRU.
	ElevationCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: Namespace + "_elevation_cache_hits_total",
			Help: "Total number of elevation tile cache hits",
		},
	)

	ElevationCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: Namespace + "_elevation_cache_misses_total",
			Help: "Total number of elevation tile cache misses",
		},
	)
)

// RecordBuildStage records the duration of a single graph-builder stage.
func RecordBuildStage(stage string, d time.Duration) {
	BuildStageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordRouteSearch records the outcome of one A* search.
func RecordRouteSearch(mode string, d time.Duration, nodesExpanded int, found bool) {
	RouteSearchDuration.WithLabelValues(mode).Observe(d.Seconds())
	RouteNodesExpanded.WithLabelValues(mode).Observe(float64(nodesExpanded))
	if !found {
		RouteNotFoundTotal.WithLabelValues(mode).Inc()
	}
}
