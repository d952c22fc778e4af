// Package metrics exposes the client's Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsDropped counts backend records dropped by normalization,
	// labeled by payload kind (product, order, history).
	RecordsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_normalize_dropped_total",
			Help: "Total number of backend records dropped by normalization",
		},
		[]string{"kind"},
	)

	// PersistFailures counts durable-store operations that failed, labeled
	// by operation.
	PersistFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_persist_failures_total",
			Help: "Total number of failed durable store operations",
		},
		[]string{"op"},
	)

	// BackendErrors counts failed backend requests by error kind.
	BackendErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_backend_errors_total",
			Help: "Total number of backend request failures",
		},
		[]string{"kind"},
	)
)
