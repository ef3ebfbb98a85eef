// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SyncOperationsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_operations_completed_total",
			Help: "Total number of synchronizer operations completed",
		},
		[]string{"collection", "operation"},
	)

	SyncOperationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_operations_failed_total",
			Help: "Total number of synchronizer operations failed",
		},
		[]string{"collection", "operation", "error_code"},
	)

	SyncOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "sync_operation_duration_seconds",
			Help: "Duration of synchronizer operations in seconds",
		},
		[]string{"collection", "operation"},
	)

	SyncOperationsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sync_operations_in_flight",
			Help: "Number of in-flight operations per collection",
		},
		[]string{"collection"},
	)
)
