// Package metrics exposes the engine's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// OrdersFinished counts orders by terminal status.
	OrdersFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "motionlab_orders_finished_total",
			Help: "Orders that reached a terminal status.",
		},
		[]string{"status"},
	)

	// OrdersThrottled counts admission rejections.
	OrdersThrottled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "motionlab_orders_throttled_total",
			Help: "Orders queued by admission control.",
		},
	)

	// ProviderPolls counts poll calls per provider and outcome.
	ProviderPolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "motionlab_provider_polls_total",
			Help: "Provider poll calls by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	// ProviderSubmissions counts accepted job submissions per provider.
	ProviderSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "motionlab_provider_submissions_total",
			Help: "Accepted job submissions by provider.",
		},
		[]string{"provider"},
	)

	// CreditMovements counts ledger debits and refunds issued by the engine.
	CreditMovements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "motionlab_credit_movements_total",
			Help: "Credit ledger movements by direction.",
		},
		[]string{"direction"},
	)

	// ActiveSessions tracks monitoring sessions currently running.
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "motionlab_active_sessions",
			Help: "Monitoring sessions currently polling providers.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		OrdersFinished,
		OrdersThrottled,
		ProviderPolls,
		ProviderSubmissions,
		CreditMovements,
		ActiveSessions,
	)
}
