// Package metrics provides internal metrics utilities for tether.
package metrics

import "github.com/arloliu/tether/types"

// NopMetrics is a no-op metrics collector that discards all metrics.
//
// This is used as the default metrics collector when no collector is configured,
// avoiding nil checks throughout the codebase.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements types.MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNopMetrics creates a new no-op metrics collector.
//
// Returns:
//   - *NopMetrics: A collector that discards all metrics
func NewNopMetrics() *NopMetrics {
	return &NopMetrics{}
}

// IncInvocationTotal discards the metric.
func (m *NopMetrics) IncInvocationTotal(_ string) {}

// ObserveInvocationDuration discards the metric.
func (m *NopMetrics) ObserveInvocationDuration(_ string, _ float64) {}

// IncFailure discards the metric.
func (m *NopMetrics) IncFailure(_ string, _ types.Verdict) {}

// IncHandleClosed discards the metric.
func (m *NopMetrics) IncHandleClosed(_ string) {}

// IncHandleAborted discards the metric.
func (m *NopMetrics) IncHandleAborted(_ string) {}

// IncObserverPanic discards the metric.
func (m *NopMetrics) IncObserverPanic(_ string) {}

// IncJournalDropped discards the metric.
func (m *NopMetrics) IncJournalDropped(_ string) {}
