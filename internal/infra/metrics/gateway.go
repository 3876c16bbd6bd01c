package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(gatewayCalls, gatewayLatency, webhookSignatureFailures)
}

var (
	// op: create_order|fetch_order
	// result: ok|auth|rejected|transient
	gatewayCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_calls_total",
			Help: "Payment gateway calls by operation and result.",
		},
		[]string{"op", "result"},
	)

	gatewayLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_call_duration_seconds",
			Help:    "Payment gateway call latency.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
		},
		[]string{"op"},
	)

	webhookSignatureFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_signature_failures_total",
			Help: "Webhook deliveries whose signature did not verify.",
		},
	)
)

func ObserveGatewayCall(op, result string, d time.Duration) {
	gatewayCalls.WithLabelValues(norm(op), norm(result)).Inc()
	gatewayLatency.WithLabelValues(norm(op)).Observe(d.Seconds())
}

func IncWebhookSignatureFailure() { webhookSignatureFailures.Inc() }
