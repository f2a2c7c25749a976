// Package metrics exposes Prometheus instruments for ingestion and
// status resolution. Collectors are registered on the default registry
// and served by the HTTP server at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsIngested counts events accepted into the store, by kind.
	EventsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldtracker_events_ingested_total",
		Help: "Events accepted into the event store.",
	}, []string{"kind"})

	// EventsRejected counts events rejected at validation.
	EventsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldtracker_events_rejected_total",
		Help: "Events rejected as invalid at ingest.",
	}, []string{"kind"})

	// TrackedRepresentatives is the number of representatives with stored events.
	TrackedRepresentatives = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fieldtracker_tracked_representatives",
		Help: "Representatives known to the event store.",
	})

	// StatusRecomputations counts status resolver runs, by resulting status.
	StatusRecomputations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldtracker_status_recomputations_total",
		Help: "Status resolver recomputations by resolved status.",
	}, []string{"status"})

	// AggregationDuration observes performance window computation latency.
	AggregationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fieldtracker_aggregation_duration_seconds",
		Help:    "Duration of performance window computations.",
		Buckets: prometheus.DefBuckets,
	})
)
