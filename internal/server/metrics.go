package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sbomgraph",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		},
		[]string{"route", "status"},
	)

	streamSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sbomgraph",
			Subsystem: "stream",
			Name:      "subscribers",
			Help:      "Connected delta stream subscribers",
		},
	)

	streamDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sbomgraph",
			Subsystem: "stream",
			Name:      "dropped_total",
			Help:      "Subscribers disconnected for falling behind",
		},
	)
)
