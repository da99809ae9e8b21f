package vm

import (
	"fmt"
	"io"
	"net/http"

	"github.com/VictoriaMetrics/metrics"

	"github.com/arloliu/tether/types"
)

// Option configures a Collector.
type Option func(*Collector)

// WithPrefix sets the metric name prefix.
//
// Default: "tether"
//
// Parameters:
//   - prefix: The prefix to use for all metric names
//
// Returns:
//   - Option: A configuration option
func WithPrefix(prefix string) Option {
	return func(c *Collector) {
		c.prefix = prefix
	}
}

// WithMetricsSet sets the metrics set to use.
//
// If provided, the collector will register metrics with this set instead of
// creating a new one. The caller is responsible for exposing this set
// (e.g., via metrics.WritePrometheus or a custom handler).
//
// Parameters:
//   - set: The metrics set to use
//
// Returns:
//   - Option: A configuration option
func WithMetricsSet(set *metrics.Set) Option {
	return func(c *Collector) {
		c.set = set
	}
}

// Collector implements types.MetricsCollector using VictoriaMetrics.
//
// Metrics are labeled by contract and created on first use, since the set
// of contracts is only known at runtime. Thread-safe for concurrent use.
type Collector struct {
	set    *metrics.Set
	prefix string
}

// Compile-time assertion that Collector implements types.MetricsCollector.
var _ types.MetricsCollector = (*Collector)(nil)

// New creates a new VictoriaMetrics-based metrics collector.
//
// The collector creates its own metrics.Set and registers it globally
// unless WithMetricsSet is given.
//
// Parameters:
//   - opts: Configuration options (e.g., WithPrefix)
//
// Returns:
//   - *Collector: A new metrics collector ready for use
//
// Example:
//
//	collector := vm.New(vm.WithPrefix("myapp"))
//	w, _ := tether.New[pb.InventoryClient](factory, tether.WithMetrics(collector))
func New(opts ...Option) *Collector {
	c := &Collector{prefix: "tether"}

	for _, opt := range opts {
		opt(c)
	}

	// If no set is provided, create a new one and register it globally.
	// If a set is provided, we assume the caller manages it.
	if c.set == nil {
		c.set = metrics.NewSet()
		metrics.RegisterSet(c.set)
	}

	return c
}

// Set returns the underlying metrics set.
func (c *Collector) Set() *metrics.Set {
	return c.set
}

// Handler returns an HTTP handler that exposes metrics in Prometheus format.
//
// Example:
//
//	http.HandleFunc("/metrics", collector.Handler)
func (c *Collector) Handler(w http.ResponseWriter, _ *http.Request) {
	c.set.WritePrometheus(w)
}

// WritePrometheus writes all metrics in Prometheus format to the given writer.
//
// Parameters:
//   - w: The writer to write metrics to
func (c *Collector) WritePrometheus(w io.Writer) {
	c.set.WritePrometheus(w)
}

func (c *Collector) name(metric, contract string) string {
	return fmt.Sprintf(`%s_%s{contract=%q}`, c.prefix, metric, contract)
}

// ----------------------
// Invocations
// ----------------------

// IncInvocationTotal increments the total invocation counter.
func (c *Collector) IncInvocationTotal(contract string) {
	c.set.GetOrCreateCounter(c.name("invocations_total", contract)).Inc()
}

// ObserveInvocationDuration records an invocation duration in seconds.
func (c *Collector) ObserveInvocationDuration(contract string, seconds float64) {
	c.set.GetOrCreateHistogram(c.name("invocation_duration_seconds", contract)).Update(seconds)
}

// IncFailure increments the failure counter for the given verdict.
func (c *Collector) IncFailure(contract string, verdict types.Verdict) {
	c.set.GetOrCreateCounter(fmt.Sprintf(`%s_failures_total{contract=%q,verdict=%q}`,
		c.prefix, contract, verdict.String())).Inc()
}

// ----------------------
// Handles
// ----------------------

// IncHandleClosed increments the counter of gracefully closed handles.
func (c *Collector) IncHandleClosed(contract string) {
	c.set.GetOrCreateCounter(c.name("handles_closed_total", contract)).Inc()
}

// IncHandleAborted increments the counter of aborted handles.
func (c *Collector) IncHandleAborted(contract string) {
	c.set.GetOrCreateCounter(c.name("handles_aborted_total", contract)).Inc()
}

// ----------------------
// Observers
// ----------------------

// IncObserverPanic increments the counter of recovered observer panics.
func (c *Collector) IncObserverPanic(contract string) {
	c.set.GetOrCreateCounter(c.name("observer_panics_total", contract)).Inc()
}

// IncJournalDropped increments the counter of dropped journal records.
func (c *Collector) IncJournalDropped(contract string) {
	c.set.GetOrCreateCounter(c.name("journal_dropped_total", contract)).Inc()
}
