package ledger

import "time"

// Config holds configuration for ledger operations.
type Config struct {
	// MaxConflictRetries bounds how many times a top-up is re-read and
	// re-applied after a compare-and-set collision before giving up with
	// ErrConflict.
	MaxConflictRetries int
}

const defaultMaxConflictRetries = 3

// MetricsCollector defines the interface for collecting ledger metrics.
type MetricsCollector interface {
	RecordOperationDuration(operation string, duration time.Duration)
	RecordTransaction(txType string, baseAmount float64)
	RecordError(operation, errType string)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordOperationDuration(string, time.Duration) {}
func (n *NoopMetricsCollector) RecordTransaction(string, float64)             {}
func (n *NoopMetricsCollector) RecordError(string, string)                    {}
