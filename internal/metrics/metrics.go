// Package metrics exposes Prometheus instruments for directory operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RosterOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "activity_signup",
			Name:      "roster_operations_total",
			Help:      "Roster operations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	RosterOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "activity_signup",
			Name:      "roster_operation_duration_seconds",
			Help:      "Duration of roster operations in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"operation"},
	)

	EventPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "activity_signup",
			Name:      "event_publish_failures_total",
			Help:      "Roster change events that could not be published",
		},
	)
)

// ObserveOperation records one directory call.
func ObserveOperation(operation, outcome string, started time.Time) {
	RosterOperations.WithLabelValues(operation, outcome).Inc()
	RosterOperationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}
