// Package observability provides Prometheus metrics and OpenTelemetry tracing
// for the form summary service.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// INTAKE METRICS
// =============================================================================

var submissionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "formsummary_submissions_total",
		Help: "Webhook deliveries by intake outcome",
	},
	[]string{"outcome"}, // outcome: accepted, duplicate, invalid, store_error
)

// =============================================================================
// GENERATION METRICS
// =============================================================================

var (
	generationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formsummary_generations_total",
			Help: "Generation worker runs by final status",
		},
		[]string{"status"}, // status: success, empty, error, timeout, panic
	)

	generationDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "formsummary_generation_duration_seconds",
			Help:    "Duration of the external generation call in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	finalizeRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "formsummary_finalize_retries_total",
			Help: "Store write retries while finalizing a submission",
		},
	)

	hookFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formsummary_hook_failures_total",
			Help: "Post-completion hook failures",
		},
		[]string{"hook"}, // hook: archive, followup
	)
)

// =============================================================================
// LOOKUP AND HTTP METRICS
// =============================================================================

var (
	lookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formsummary_lookups_total",
			Help: "Result lookups by presented state",
		},
		[]string{"state"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formsummary_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "formsummary_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"route"},
	)
)

// =============================================================================
// PUBLIC API
// =============================================================================

// RecordSubmission counts one webhook delivery.
func RecordSubmission(outcome string) {
	submissionsTotal.WithLabelValues(outcome).Inc()
}

// RecordGeneration records the outcome and latency of one worker run.
func RecordGeneration(status string, duration time.Duration) {
	generationsTotal.WithLabelValues(status).Inc()
	generationDurationSeconds.Observe(duration.Seconds())
}

func RecordFinalizeRetry() {
	finalizeRetriesTotal.Inc()
}

func RecordHookFailure(hook string) {
	hookFailuresTotal.WithLabelValues(hook).Inc()
}

// RecordLookup counts one result lookup.
func RecordLookup(state string) {
	lookupsTotal.WithLabelValues(state).Inc()
}

// RecordHTTPRequest records request metrics. Called from the logging middleware.
func RecordHTTPRequest(route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(route).Observe(duration.Seconds())
}
