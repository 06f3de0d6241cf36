// Package metrics exposes the Prometheus instruments the engine updates
// during build and query phases: promauto constructors with a
// Name/Help pair and a label set, registered against the default
// registry with no manual registration step.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TreeBuildDuration measures B+-tree bulk-load wall time.
	TreeBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rangeknn_tree_build_duration_seconds",
		Help:    "Duration of B+-tree bulk load",
		Buckets: prometheus.DefBuckets,
	})

	// TreeLeafCount records the number of leaves produced by the most
	// recent bulk load.
	TreeLeafCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rangeknn_tree_leaf_count",
		Help: "Number of leaves in the bulk-loaded B+-tree",
	})

	// GraphBuildDuration measures parallel HNSW graph build wall time.
	GraphBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rangeknn_graph_build_duration_seconds",
		Help:    "Duration of HNSW graph build",
		Buckets: prometheus.DefBuckets,
	})

	// GraphNodeCount records the number of vectors inserted into the graph.
	GraphNodeCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rangeknn_graph_node_count",
		Help: "Number of vectors held by the HNSW graph",
	})

	// GraphSearchDuration measures a single SearchKNN call.
	GraphSearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rangeknn_graph_search_duration_seconds",
		Help:    "Duration of a single HNSW graph search",
		Buckets: prometheus.DefBuckets,
	})

	// DispatchRouteTotal counts how many queries took the brute-force vs.
	// graph-search route.
	DispatchRouteTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rangeknn_dispatch_route_total",
		Help: "Total queries dispatched per route",
	}, []string{"route"})

	// DispatchDuration measures per-query dispatch latency by route.
	DispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rangeknn_dispatch_duration_seconds",
		Help:    "Duration of a single query dispatch",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	// CandidateSetSize is a histogram of |searchRange(l, r)| across
	// queries, used to sanity-check the T_brute threshold in practice.
	CandidateSetSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rangeknn_candidate_set_size",
		Help:    "Size of the range-filter candidate set per query",
		Buckets: prometheus.ExponentialBuckets(1, 4, 12),
	})

	// TruncatedResultsTotal counts queries that returned fewer than K ids
	// because the filter+candidate set was exhausted first.
	TruncatedResultsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rangeknn_truncated_results_total",
		Help: "Total queries that returned fewer than K ids",
	})

	// IOBytesTotal counts bytes read/written per file role (dataset,
	// queries, output).
	IOBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rangeknn_io_bytes_total",
		Help: "Total bytes read or written per file role",
	}, []string{"role", "direction"})

	// LogEntriesTotal counts structured log entries by level.
	LogEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rangeknn_log_entries_total",
		Help: "Total number of log entries by level",
	}, []string{"level"})
)
