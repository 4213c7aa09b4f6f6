package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BackendMetrics records calls made to the commerce REST API.
type BackendMetrics struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// NewBackendMetrics registers the backend call metrics on the provided registerer.
func NewBackendMetrics(reg prometheus.Registerer) *BackendMetrics {
	if reg == nil {
		return &BackendMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backend_request_duration_seconds",
		Help:    "Duration of backend API calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backend_requests_total",
		Help: "Backend API calls by operation and HTTP status.",
	}, []string{"op", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backend_transport_failures_total",
		Help: "Backend API calls that failed before a response arrived.",
	}, []string{"op"})
	reg.MustRegister(duration, requests, failures)
	return &BackendMetrics{
		duration: duration,
		requests: requests,
		failures: failures,
	}
}

// Observe records a completed backend call.
func (b *BackendMetrics) Observe(op string, status int, duration time.Duration) {
	if b == nil || b.duration == nil {
		return
	}
	label := normalizeLabel(op)
	b.duration.WithLabelValues(label).Observe(duration.Seconds())
	b.requests.WithLabelValues(label, strconv.Itoa(status)).Inc()
}

// IncTransportFailure counts a call that never produced an HTTP response.
func (b *BackendMetrics) IncTransportFailure(op string) {
	if b == nil || b.failures == nil {
		return
	}
	b.failures.WithLabelValues(normalizeLabel(op)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
