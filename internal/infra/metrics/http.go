package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		httpRequestsTotal,
		httpRequestDuration,
		rateLimitedTotal,
	)
}

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route pattern and status code.",
		},
		[]string{"route", "code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	rateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests refused by the per-client rate limiter.",
		},
		[]string{"route"},
	)
)

func ObserveHTTPRequest(route string, code int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	httpRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func IncRateLimited(route string) {
	rateLimitedTotal.WithLabelValues(route).Inc()
}
