// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransitionsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_transitions_completed_total",
			Help: "Total number of committed lifecycle transitions",
		},
		[]string{"transition"},
	)

	TransitionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_transitions_rejected_total",
			Help: "Total number of rejected lifecycle transitions",
		},
		[]string{"transition", "error_code"},
	)

	TransitionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "lifecycle_transition_duration_seconds",
			Help: "Duration of lifecycle transition processing in seconds",
		},
		[]string{"transition"},
	)

	LedgerDebits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_debits_total",
			Help: "Total number of entitlement debits by feature and outcome",
		},
		[]string{"feature", "outcome"},
	)

	DispatchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_failures_total",
			Help: "Total number of failed fire-and-forget dispatches",
		},
		[]string{"target"},
	)
)
