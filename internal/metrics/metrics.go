package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP request metrics for the API server
var (
	// HTTPRequestDuration tracks the duration of HTTP requests
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests by method, path, and status",
			Buckets: prometheus.DefBuckets, // Default: .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestsTotal counts the total number of HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by method, path, and status",
		},
		[]string{"method", "path", "status"},
	)
)

// Collector metrics
var (
	// ProviderRequestsTotal counts provider fetches by outcome
	// (success | failed | skipped | cache_hit)
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_provider_requests_total",
			Help: "Total provider fetch attempts by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	// ProviderFetchDuration tracks the wall-clock time of one provider fetch
	ProviderFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collector_provider_fetch_duration_seconds",
			Help:    "Duration of a single provider fetch including retries",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider"},
	)

	// ProductsCollected counts uniform records produced per provider
	ProductsCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_products_collected_total",
			Help: "Total uniform records produced per provider",
		},
		[]string{"provider"},
	)

	// BreakerState exposes the current circuit breaker state per provider
	// (0=closed, 1=open, 2=half_open)
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "collector_circuit_breaker_state",
			Help: "Circuit breaker state per provider (0=closed, 1=open, 2=half_open)",
		},
		[]string{"provider"},
	)
)

// Pipeline metrics
var (
	// StageDuration tracks the duration of one pipeline stage over a batch
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Duration of one analysis pipeline stage",
			Buckets: []float64{.005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"stage"},
	)

	// BatchesTotal counts completed batches by result (committed | rolled_back)
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_batches_total",
			Help: "Total analysis batches by result",
		},
		[]string{"result"},
	)

	// PriceRecordsSaved counts persisted price history rows
	PriceRecordsSaved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_price_records_saved_total",
			Help: "Total price history rows written",
		},
	)

	// RecordErrors counts per-item errors recorded by pipeline stages
	RecordErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_record_errors_total",
			Help: "Per-item errors recorded by pipeline stages",
		},
		[]string{"stage"},
	)
)

// ObserveStage records one stage execution.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// RecordHTTPRequest records one API request.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	HTTPRequestsTotal.WithLabelValues(method, path, code).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}
