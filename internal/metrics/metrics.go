// Package metrics exposes prometheus counters for instrumentation runs.
// This CLI runs one instrumentation pass and exits, so there is no /metrics
// HTTP exporter here; the counters exist for anyone embedding
// instrument.Module in a longer-lived service that does want to scrape them.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// FunctionsInstrumented counts functions rewritten with prologue/epilogue
	// tracing calls, across all runs in this process.
	FunctionsInstrumented = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wasmtrace",
		Name:      "functions_instrumented_total",
		Help:      "Number of functions rewritten with tracing calls.",
	})

	// FunctionsSkipped counts functions left untouched because they are one
	// of the three anchor exports.
	FunctionsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wasmtrace",
		Name:      "functions_skipped_total",
		Help:      "Number of anchor functions excluded from instrumentation.",
	})

	// BytesProcessed counts the total size of input modules instrumented.
	BytesProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wasmtrace",
		Name:      "bytes_processed_total",
		Help:      "Total size, in bytes, of modules read for instrumentation.",
	})
)

func init() {
	prometheus.MustRegister(FunctionsInstrumented, FunctionsSkipped, BytesProcessed)
}
