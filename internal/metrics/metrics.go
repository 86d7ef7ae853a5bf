// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "route"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)

	providerCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_calls_total",
			Help: "Total number of calls to external providers",
		},
		[]string{"provider", "operation", "status"},
	)

	providerCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_call_duration_seconds",
			Help:    "External provider call duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "operation"},
	)

	questionsWithoutAudio = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_questions_without_audio_total",
			Help: "Session questions persisted without synthesized audio",
		},
	)

	feedbackFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_fallbacks_total",
			Help: "Feedback compositions that fell back to templated text",
		},
		[]string{"reason"},
	)
)

// RecordHTTPRequest records a completed HTTP request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unknown"
	}
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// InFlight returns the in-flight gauge.
func InFlight() prometheus.Gauge {
	return httpRequestsInFlight
}

// RecordProviderCall records the outcome of a call to an external provider.
func RecordProviderCall(provider, operation string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	providerCallsTotal.WithLabelValues(provider, operation, status).Inc()
	providerCallDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// ObserveProvider times fn and records it as a provider call.
func ObserveProvider(provider, operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	RecordProviderCall(provider, operation, err == nil, time.Since(start))
	return err
}

// RecordQuestionWithoutAudio counts a question whose audio could not be produced.
func RecordQuestionWithoutAudio() {
	questionsWithoutAudio.Inc()
}

// RecordFeedbackFallback counts a templated feedback fallback.
func RecordFeedbackFallback(reason string) {
	feedbackFallbacks.WithLabelValues(reason).Inc()
}
