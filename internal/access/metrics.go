// internal/access/metrics.go
package access

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are package level so multiple gates share one registration.
var accessDecisions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "collabd",
		Subsystem: "access",
		Name:      "decisions_total",
		Help:      "Access gate decisions by operation and outcome.",
	},
	[]string{"operation", "outcome"},
)

func recordDecision(operation, outcome string) {
	accessDecisions.WithLabelValues(operation, outcome).Inc()
}
