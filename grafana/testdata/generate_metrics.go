// Package main generates sample metrics data for testing Grafana
// dashboards without pointing them at a real collabd deployment. The
// metric names, labels and buckets mirror what the service exports on
// /metrics.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics for testing dashboards
var (
	// Object store metrics
	operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collabd_objectstore_operation_duration_seconds",
			Help:    "Store operation duration in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0},
		},
		[]string{"operation"},
	)
	operationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collabd_objectstore_operation_errors_total",
			Help: "Total store operation errors by class.",
		},
		[]string{"operation", "class"},
	)
	provisionOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collabd_objectstore_provision_outcomes_total",
			Help: "Index provisioning attempts by outcome.",
		},
		[]string{"outcome"},
	)
	searchResultSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "collabd_objectstore_search_result_size",
			Help:    "Number of objects returned per search page.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	// Access gate metrics
	accessDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collabd_access_decisions_total",
			Help: "Access gate decisions by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)
)

var (
	storeOperations = []string{"ensure_ready", "get", "multi_get", "create", "search", "delete", "bulk_delete"}
	errorClasses    = []string{"timeout", "unavailable", "conflict", "provisioning", "invalid", "other"}
	gateOperations  = []string{"get", "multi_get", "create", "search", "delete", "delete_many"}
	gateOutcomes    = []string{"allowed", "denied", "not_found", "unauthenticated"}
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		operationDuration,
		operationErrors,
		provisionOutcomes,
		searchResultSize,
		accessDecisions,
	)
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "9090"
	}

	// Generate initial sample data
	generateSampleData()

	// Start background goroutine to continuously generate data
	ctx, cancel := context.WithCancel(context.Background())
	go generateContinuousData(ctx)

	// Serve metrics
	http.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    ":" + port,
		Handler: nil,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		cancel()
		server.Shutdown(context.Background())
	}()

	fmt.Printf("Sample metrics server running on http://localhost:%s/metrics\n", port)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println("\nTo use with Prometheus, add this to prometheus.yml:")
	fmt.Printf("  - job_name: 'collabd-test'\n    static_configs:\n      - targets: ['localhost:%s']\n", port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

func generateSampleData() {
	// Most operations succeed quickly
	for i := 0; i < 400; i++ {
		op := randomChoice(storeOperations)
		operationDuration.WithLabelValues(op).Observe(rand.Float64() * 0.2)
	}
	// Occasional slow operations
	for i := 0; i < 20; i++ {
		operationDuration.WithLabelValues(randomChoice(storeOperations)).Observe(0.5 + rand.Float64()*4.0)
	}
	for i := 0; i < 15; i++ {
		operationErrors.WithLabelValues(randomChoice(storeOperations), randomChoice(errorClasses)).Inc()
	}

	// Provisioning converges fast after startup
	provisionOutcomes.WithLabelValues("created").Inc()
	for i := 0; i < 30; i++ {
		provisionOutcomes.WithLabelValues("mapping_applied").Inc()
	}
	provisionOutcomes.WithLabelValues("raced").Inc()
	provisionOutcomes.WithLabelValues("failed").Inc()

	for i := 0; i < 150; i++ {
		searchResultSize.Observe(float64(rand.Intn(20) + 1))
	}
	for i := 0; i < 10; i++ {
		searchResultSize.Observe(float64(rand.Intn(2000) + 100))
	}

	// Gate decisions skew heavily toward allowed
	for i := 0; i < 500; i++ {
		accessDecisions.WithLabelValues(randomChoice(gateOperations), "allowed").Inc()
	}
	for i := 0; i < 30; i++ {
		accessDecisions.WithLabelValues(randomChoice(gateOperations), randomChoice([]string{"denied", "not_found"})).Inc()
	}
	for i := 0; i < 5; i++ {
		accessDecisions.WithLabelValues(randomChoice(gateOperations), "unauthenticated").Inc()
	}
}

func generateContinuousData(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Add some random activity
			op := randomChoice(storeOperations)
			operationDuration.WithLabelValues(op).Observe(rand.Float64() * 0.3)
			if rand.Float64() > 0.9 {
				operationErrors.WithLabelValues(op, randomChoice(errorClasses)).Inc()
			}
			if op == "search" {
				searchResultSize.Observe(float64(rand.Intn(20) + 1))
			}

			outcome := "allowed"
			if rand.Float64() > 0.9 {
				outcome = randomChoice(gateOutcomes)
			}
			accessDecisions.WithLabelValues(randomChoice(gateOperations), outcome).Inc()
		}
	}
}

func randomChoice(choices []string) string {
	return choices[rand.Intn(len(choices))]
}
