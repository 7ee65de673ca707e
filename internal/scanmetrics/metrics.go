// Package scanmetrics exposes the Prometheus counters and histograms the
// scanner and proxy update as they run, independent of how those metrics are
// served (the caller wires the default registry into an HTTP handler).
package scanmetrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// ScansTotal counts completed scans, labeled by outcome ("ok" or
	// "failed").
	ScansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mcpguard",
		Subsystem: "scan",
		Name:      "total",
		Help:      "Total number of server scans, by outcome.",
	}, []string{"outcome"})

	// ScanDurationSeconds observes how long a single server scan took.
	ScanDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mcpguard",
		Subsystem: "scan",
		Name:      "duration_seconds",
		Help:      "Duration of a single server scan.",
		Buckets:   prometheus.DefBuckets,
	})

	// ThreatsFound counts threats raised, labeled by severity.
	ThreatsFound = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mcpguard",
		Subsystem: "scan",
		Name:      "threats_total",
		Help:      "Total number of threats raised, by severity.",
	}, []string{"severity"})

	// ToolCallsTotal counts proxied tool calls, labeled by decision
	// ("allow", "block", "rate_limited").
	ToolCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mcpguard",
		Subsystem: "proxy",
		Name:      "tool_calls_total",
		Help:      "Total number of proxied tool calls, by decision.",
	}, []string{"decision"})
)

func init() {
	prometheus.MustRegister(ScansTotal, ScanDurationSeconds, ThreatsFound, ToolCallsTotal)
}
