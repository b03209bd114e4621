// Package metrics provides the Prometheus-backed implementation of the
// ledger metrics collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type LedgerMetrics struct {
	transactionsTotal *prometheus.CounterVec
	amountTotal       *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

func NewLedgerMetrics() *LedgerMetrics {
	return &LedgerMetrics{
		transactionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_transactions_total",
				Help: "Number of committed ledger transactions",
			},
			[]string{"type"},
		),
		amountTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_transaction_amount_pln_total",
				Help: "Total transacted value in the reference currency",
			},
			[]string{"type"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_errors_total",
				Help: "Number of failed ledger operations",
			},
			[]string{"operation", "error"},
		),
		operationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_operation_duration_seconds",
				Help:    "Latency of ledger operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (m *LedgerMetrics) RecordOperationDuration(operation string, duration time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *LedgerMetrics) RecordTransaction(txType string, baseAmount float64) {
	m.transactionsTotal.WithLabelValues(txType).Inc()
	m.amountTotal.WithLabelValues(txType).Add(baseAmount)
}

func (m *LedgerMetrics) RecordError(operation, errType string) {
	m.errorsTotal.WithLabelValues(operation, errType).Inc()
}
