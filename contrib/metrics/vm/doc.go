// Package vm provides a VictoriaMetrics-based implementation of the MetricsCollector interface.
//
// This package uses github.com/VictoriaMetrics/metrics for lightweight,
// high-performance Prometheus-compatible metrics collection.
//
// # Basic Usage
//
// Create a collector with default prefix "tether":
//
//	collector := vm.New()
//	w, _ := tether.New[pb.InventoryClient](factory,
//	    tether.WithMetrics(collector),
//	)
//
// # Custom Prefix
//
// Use WithPrefix to customize the metric name prefix:
//
//	collector := vm.New(vm.WithPrefix("myapp"))
//
// This produces metrics like:
//   - myapp_invocations_total{contract="pb.InventoryClient"}
//   - myapp_failures_total{contract="pb.InventoryClient",verdict="abort_and_report"}
//
// # Exposing Metrics
//
// Use the Handler method to expose metrics via HTTP:
//
//	http.HandleFunc("/metrics", collector.Handler)
//	http.ListenAndServe(":8080", nil)
//
// Or use WritePrometheus to write metrics to a custom writer:
//
//	collector.WritePrometheus(w)
//
// # Metrics Provided
//
// Invocations:
//   - {prefix}_invocations_total{contract} - Counter of invocations
//   - {prefix}_invocation_duration_seconds{contract} - Histogram of invocation latencies
//   - {prefix}_failures_total{contract,verdict} - Counter of classified failures
//
// Handles:
//   - {prefix}_handles_closed_total{contract} - Counter of gracefully closed handles
//   - {prefix}_handles_aborted_total{contract} - Counter of aborted handles
//
// Observers and journals:
//   - {prefix}_observer_panics_total{contract} - Counter of recovered observer panics
//   - {prefix}_journal_dropped_total{contract} - Counter of dropped journal records
//
// # Performance Notes
//
// Contract names are only known at runtime, so metrics are created lazily
// with the GetOrCreateXXX functions. After the first call for a contract the
// lookup is a map read.
package vm
