// Package metrics exposes Prometheus metrics of the issuance factory.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label value of successful operations.
const OutcomeOK = "ok"

// Metrics holds all Prometheus metrics of one factory instance. Every
// instance owns its registry so that tests do not share global state.
type Metrics struct {
	registry *prometheus.Registry

	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	ItemsIssued       prometheus.Counter
	PaymentsRejected  *prometheus.CounterVec
	DispatchFailures  *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics under namespace.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Factory operations by operation and outcome (ok or error code)",
		}, []string{"operation", "outcome"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of factory operations including commit and dispatch",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		ItemsIssued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_issued_total",
			Help:      "Items issued after an accepted payment",
		}),
		PaymentsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_rejected_total",
			Help:      "Rejected payment notifications by reason",
		}, []string{"reason"}),
		DispatchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_failures_total",
			Help:      "Messages that could not be delivered, by dispatcher",
		}, []string{"dispatcher"}),
	}
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveOperation records one finished operation.
func (m *Metrics) ObserveOperation(operation, outcome string, duration time.Duration) {
	m.Operations.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// IncrementItemsIssued increments the issued items counter by 1.
func (m *Metrics) IncrementItemsIssued() {
	m.ItemsIssued.Inc()
}

// IncrementPaymentsRejected counts a rejected payment.
func (m *Metrics) IncrementPaymentsRejected(reason string) {
	m.PaymentsRejected.WithLabelValues(reason).Inc()
}

// IncrementDispatchFailures counts an undelivered message.
func (m *Metrics) IncrementDispatchFailures(dispatcher string) {
	m.DispatchFailures.WithLabelValues(dispatcher).Inc()
}
