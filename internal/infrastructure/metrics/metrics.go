package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors shared by the background workers. HTTP request metrics
// live in the HTTP middleware; these cover the asynchronous paths.
var (
	// Outbox publisher
	OutboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paywallet_outbox_published_total",
			Help: "Outbox events published to the broker",
		},
		[]string{"topic"},
	)
	OutboxPublishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paywallet_outbox_publish_errors_total",
		Help: "Outbox publish attempts that failed",
	})

	// Event consumer
	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paywallet_events_consumed_total",
			Help: "Event deliveries acknowledged by type",
		},
		[]string{"event_type"},
	)
	EventsRequeued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paywallet_events_requeued_total",
		Help: "Event deliveries returned to the queue after a processing failure",
	})
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paywallet_events_dropped_total",
		Help: "Malformed deliveries rejected without requeue",
	})

	// Pending-entry reconciler
	ReconcileRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paywallet_reconcile_runs_total",
		Help: "Reconciler sweeps executed",
	})
	ReconciledEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paywallet_reconciled_entries_total",
			Help: "Pending entry pairs settled by outcome",
		},
		[]string{"outcome"},
	)
)
