// internal/objectstore/metrics.go
package objectstore

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "collabd",
		Subsystem: "objectstore",
		Name:      "operation_duration_seconds",
		Help:      "Store operation duration in seconds.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0},
	}, []string{"operation"})

	operationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "collabd",
		Subsystem: "objectstore",
		Name:      "operation_errors_total",
		Help:      "Total store operation errors by class.",
	}, []string{"operation", "class"})

	provisionOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "collabd",
		Subsystem: "objectstore",
		Name:      "provision_outcomes_total",
		Help:      "Index provisioning attempts by outcome.",
	}, []string{"outcome"})

	searchResultSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "collabd",
		Subsystem: "objectstore",
		Name:      "search_result_size",
		Help:      "Number of objects returned per search page.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})
)

// observeOperation records duration and, on failure, an error class.
// Meant for deferred use with a named error return.
func observeOperation(operation string, start time.Time, err *error) {
	operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil && *err != nil {
		operationErrors.WithLabelValues(operation, errorClass(*err)).Inc()
	}
}

// recordProvisionOutcome counts provisioning attempts by outcome.
func recordProvisionOutcome(outcome string) {
	provisionOutcomes.WithLabelValues(outcome).Inc()
}

// recordSearchResultSize tracks page sizes actually returned.
func recordSearchResultSize(n int) {
	searchResultSize.Observe(float64(n))
}

// errorClass buckets an error for the metrics label.
func errorClass(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrBackendUnavailable):
		return "unavailable"
	case errors.Is(err, ErrConflictingCreate):
		return "conflict"
	case errors.Is(err, ErrProvisioningFailure):
		return "provisioning"
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrUnknownObjectType),
		errors.Is(err, ErrMalformedDocument):
		return "invalid"
	default:
		return "other"
	}
}
