package companycam

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the request lifecycle and
// the rate limiter. It is safe for concurrent use.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	retriesTotal *prometheus.CounterVec

	rateLimiterTokens     *prometheus.GaugeVec
	rateLimiterQueueDepth *prometheus.GaugeVec

	errorsTotal *prometheus.CounterVec
}

// NewMetricsCollector creates a collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using the supplied
// registerer, letting tests and multi-client setups isolate registration.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "companycam_requests_total",
				Help: "Total number of API requests made",
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "companycam_request_duration_seconds",
				Help:    "Duration of API requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "companycam_requests_in_flight",
				Help: "Number of API requests currently in flight",
			},
			[]string{"method", "endpoint"},
		),
		retriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "companycam_retries_total",
				Help: "Total number of retry attempts",
			},
			[]string{"method", "endpoint", "attempt"},
		),
		rateLimiterTokens: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "companycam_rate_limiter_tokens",
				Help: "Current number of available rate limiter tokens",
			},
			[]string{"name"},
		),
		rateLimiterQueueDepth: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "companycam_rate_limiter_queue_depth",
				Help: "Number of acquisitions waiting in the rate limiter queue",
			},
			[]string{"name"},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "companycam_errors_total",
				Help: "Total number of errors by type",
			},
			[]string{"type", "method", "endpoint"},
		),
	}
}

// RecordRequestStart increments the in-flight gauge.
func (mc *MetricsCollector) RecordRequestStart(method, endpoint string) {
	mc.requestsInFlight.WithLabelValues(method, endpoint).Inc()
}

// RecordRequestEnd decrements the in-flight gauge.
func (mc *MetricsCollector) RecordRequestEnd(method, endpoint string) {
	mc.requestsInFlight.WithLabelValues(method, endpoint).Dec()
}

// RecordRequest records a completed request with its final status code.
func (mc *MetricsCollector) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	code := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(method, code, endpoint).Inc()
	mc.requestDuration.WithLabelValues(method, code, endpoint).Observe(duration.Seconds())
}

// RecordRetry records one retry attempt.
func (mc *MetricsCollector) RecordRetry(method, endpoint string, attempt int) {
	mc.retriesTotal.WithLabelValues(method, endpoint, strconv.Itoa(attempt)).Inc()
}

// RecordRateLimiter records the limiter's token count and queue depth.
func (mc *MetricsCollector) RecordRateLimiter(name string, tokens, queued int) {
	mc.rateLimiterTokens.WithLabelValues(name).Set(float64(tokens))
	mc.rateLimiterQueueDepth.WithLabelValues(name).Set(float64(queued))
}

// RecordError records an error by classification.
func (mc *MetricsCollector) RecordError(errorType, method, endpoint string) {
	mc.errorsTotal.WithLabelValues(errorType, method, endpoint).Inc()
}
