package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// UpstreamMetrics records calls made to the backend REST API.
type UpstreamMetrics struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// NewUpstreamMetrics registers the upstream metrics on the provided registerer.
func NewUpstreamMetrics(reg prometheus.Registerer) *UpstreamMetrics {
	if reg == nil {
		return &UpstreamMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_upstream_duration_seconds",
		Help:    "Duration of backend API calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_upstream_requests_total",
		Help: "Backend API calls by route and response status.",
	}, []string{"route", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_upstream_failures_total",
		Help: "Backend API calls that never produced a response.",
	}, []string{"route"})
	reg.MustRegister(duration, requests, failures)
	return &UpstreamMetrics{
		duration: duration,
		requests: requests,
		failures: failures,
	}
}

// Observe records a completed call with its response status.
func (u *UpstreamMetrics) Observe(route string, status int, elapsed time.Duration) {
	if u == nil || u.duration == nil {
		return
	}
	route = normalizeLabel(route)
	u.duration.WithLabelValues(route).Observe(elapsed.Seconds())
	u.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// IncFailure counts a transport-level failure for the route.
func (u *UpstreamMetrics) IncFailure(route string) {
	if u == nil || u.failures == nil {
		return
	}
	u.failures.WithLabelValues(normalizeLabel(route)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
