package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		ordersTotal,
		ordersRevenueTotal,
		reconcileTotal,
		reconcileDuration,
		capacityReservations,
		capacityOversold,
	)
}

var (
	// status: pending|paid|failed
	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_total",
			Help: "Order lifecycle transitions by resulting status.",
		},
		[]string{"status"},
	)

	ordersRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_revenue_total",
			Help: "The total monetary value of paid orders, labeled by currency.",
		},
		[]string{"currency"},
	)

	// source: poll|webhook|sweeper
	// outcome: fulfilled|already_fulfilled|not_paid|not_found|gateway_error|error
	reconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_total",
			Help: "Reconciliation attempts by ingress source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	reconcileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reconcile_duration_seconds",
			Help:    "Duration of a reconciliation including the gateway fetch.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"source"},
	)

	// result: reserved|sold_out
	capacityReservations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capacity_reservations_total",
			Help: "Capacity slot reservation attempts by result.",
		},
		[]string{"result"},
	)

	capacityOversold = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "capacity_oversold_total",
			Help: "Paid course orders that found no capacity slot and need manual remediation.",
		},
	)
)

func IncOrder(status string) {
	ordersTotal.WithLabelValues(norm(status)).Inc()
}

func AddRevenue(currency string, amount int64) {
	ordersRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}

func ObserveReconcile(source, outcome string, d time.Duration) {
	reconcileTotal.WithLabelValues(norm(source), norm(outcome)).Inc()
	reconcileDuration.WithLabelValues(norm(source)).Observe(d.Seconds())
}

func IncCapacityReservation(reserved bool) {
	if reserved {
		capacityReservations.WithLabelValues("reserved").Inc()
		return
	}
	capacityReservations.WithLabelValues("sold_out").Inc()
}

func IncCapacityOversold() { capacityOversold.Inc() }
