package types

// Logger is the structured logging interface used across tether.
//
// Arguments after msg are alternating key/value pairs. *slog.Logger
// satisfies this interface directly; contrib/logging/zap adapts zap.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// MetricsCollector defines methods for collecting operational metrics.
//
// All methods accept the contract name for labeling.
// Implementations should be thread-safe as methods may be called concurrently.
//
// Example usage with VictoriaMetrics (via contrib/metrics/vm):
//
//	import vmmetrics "github.com/arloliu/tether/contrib/metrics/vm"
//
//	collector := vmmetrics.New(vmmetrics.WithPrefix("myapp"))
//	w, _ := tether.New(factory, tether.WithMetrics(collector))
//
//	// Expose metrics via HTTP
//	http.HandleFunc("/metrics", collector.Handler)
type MetricsCollector interface {
	// ----------------------
	// Invocations
	// ----------------------

	// IncInvocationTotal increments the total invocation counter.
	IncInvocationTotal(contract string)

	// ObserveInvocationDuration records an invocation duration in seconds.
	ObserveInvocationDuration(contract string, seconds float64)

	// IncFailure increments the failure counter for the given verdict.
	IncFailure(contract string, verdict Verdict)

	// ----------------------
	// Handles
	// ----------------------

	// IncHandleClosed increments the counter of gracefully closed handles.
	IncHandleClosed(contract string)

	// IncHandleAborted increments the counter of aborted handles.
	IncHandleAborted(contract string)

	// ----------------------
	// Observers
	// ----------------------

	// IncObserverPanic increments the counter of recovered observer panics.
	IncObserverPanic(contract string)

	// IncJournalDropped increments the counter of failure records that
	// could not be journaled.
	IncJournalDropped(contract string)
}
