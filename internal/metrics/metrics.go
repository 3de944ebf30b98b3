package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// SolverRuns counts finished solves by outcome (completed, failed, infeasible).
	SolverRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cvrp_solver_runs_total", Help: "Solver runs by outcome."},
		[]string{"outcome"},
	)
	SolverDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "cvrp_solver_duration_seconds", Help: "Wall time of a solve including all restarts.", Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}},
		[]string{"construction", "perturbation"},
	)
	SolverIterations = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "cvrp_solver_iterations_total", Help: "Outer annealing iterations executed by the winning restarts."},
	)
	ConstructionAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "cvrp_construction_attempts", Help: "Attempts needed to build a feasible initial solution.", Buckets: []float64{1, 2, 5, 10, 50, 100, 500, 1000}},
	)
	// BestCost tracks the best cost of the most recent completed run.
	BestCost = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "cvrp_best_cost", Help: "Best cost of the most recently completed run."},
	)
	RunsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "cvrp_runs_in_flight", Help: "Solves currently running."},
	)

	// WebhookDeliveries counts webhook delivery outcomes by event type and status
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
	// WebhookLatency tracks webhook delivery latencies in milliseconds
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"event_type", "status"},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests, HTTPDuration)
		Registry.MustRegister(SolverRuns, SolverDuration, SolverIterations, ConstructionAttempts, BestCost, RunsInFlight)
		Registry.MustRegister(WebhookDeliveries, WebhookLatency)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
