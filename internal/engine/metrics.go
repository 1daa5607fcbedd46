package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("sbomgraph.engine")

var (
	// mergesTotal counts merge attempts.
	// Labels: outcome (committed, rejected), code (error code or "none")
	mergesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sbomgraph",
		Subsystem: "engine",
		Name:      "merges_total",
		Help:      "Total merge attempts by outcome",
	}, []string{"outcome", "code"})

	// mergeDuration measures merge latency including validation.
	// Labels: outcome
	mergeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sbomgraph",
		Subsystem: "engine",
		Name:      "merge_duration_seconds",
		Help:      "Merge latency in seconds",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"outcome"})

	// nodeDeltasTotal counts node deltas emitted to the sink.
	// Labels: kind (insert, update)
	nodeDeltasTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sbomgraph",
		Subsystem: "engine",
		Name:      "node_deltas_total",
		Help:      "Total node deltas emitted",
	}, []string{"kind"})

	graphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sbomgraph",
		Subsystem: "engine",
		Name:      "graph_nodes",
		Help:      "Declared components in the merged graph",
	})

	graphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sbomgraph",
		Subsystem: "engine",
		Name:      "graph_edges",
		Help:      "Dependency edges in the merged graph",
	})

	clearsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sbomgraph",
		Subsystem: "engine",
		Name:      "clears_total",
		Help:      "Total store clears",
	})
)
