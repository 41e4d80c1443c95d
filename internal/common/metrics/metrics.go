// internal/common/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FunctionRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_function_requests_total",
			Help: "Total number of edge function invocations by HTTP status",
		},
		[]string{"function", "status"},
	)

	FunctionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_function_failures_total",
			Help: "Total number of failed invocations by error code",
		},
		[]string{"function", "error_code"},
	)

	FunctionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "edge_function_duration_seconds",
			Help:    "Duration of edge function invocations in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 90},
		},
		[]string{"function"},
	)

	FunctionsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "edge_function_in_flight",
			Help: "Number of invocations currently executing",
		},
		[]string{"function"},
	)

	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_rate_limit_rejections_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"function"},
	)

	ExternalCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_external_calls_total",
			Help: "Calls to external APIs by outcome",
		},
		[]string{"service", "outcome"},
	)

	ExternalCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "edge_external_call_duration_seconds",
			Help: "Duration of external API calls in seconds",
		},
		[]string{"service"},
	)
)

// ObserveExternalCall records one outbound API call. outcome is "success" or an error code.
func ObserveExternalCall(service, outcome string, started time.Time) {
	ExternalCalls.WithLabelValues(service, outcome).Inc()
	ExternalCallDuration.WithLabelValues(service).Observe(time.Since(started).Seconds())
}
