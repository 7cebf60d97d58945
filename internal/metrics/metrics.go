package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	IncomingUpdates    *prometheus.CounterVec
	OutgoingMessages   *prometheus.CounterVec
	UpdateLatency      *prometheus.HistogramVec
	Purchases          *prometheus.CounterVec
	DepositTransitions *prometheus.CounterVec
	StockChanges       *prometheus.CounterVec
	Errors             *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			IncomingUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "telegram_incoming_updates_total",
				Help:      "Total incoming Telegram updates by intent kind.",
			}, []string{"kind"}),
			OutgoingMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "telegram_outgoing_messages_total",
				Help:      "Total outgoing Telegram calls by type and status.",
			}, []string{"type", "status"}),
			UpdateLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "update_handling_duration_seconds",
				Help:      "Latency distribution for handling one update.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"kind"}),
			Purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "purchases_total",
				Help:      "Coupon purchase attempts by outcome.",
			}, []string{"outcome"}),
			DepositTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deposit_transitions_total",
				Help:      "Deposit workflow transitions.",
			}, []string{"transition"}),
			StockChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stock_changes_total",
				Help:      "Coupon codes added, removed or issued, by operation.",
			}, []string{"op"}),
			Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total errors grouped by component.",
			}, []string{"component"}),
		}

		prometheus.MustRegister(
			metricsInstance.IncomingUpdates,
			metricsInstance.OutgoingMessages,
			metricsInstance.UpdateLatency,
			metricsInstance.Purchases,
			metricsInstance.DepositTransitions,
			metricsInstance.StockChanges,
			metricsInstance.Errors,
		)
	})
	return metricsInstance
}
