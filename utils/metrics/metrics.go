package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	registry = prometheus.NewRegistry()
	logger   *zap.Logger
)

// Initialize points promauto at the private registry.
func Initialize(log *zap.Logger) {
	logger = log
	prometheus.DefaultRegisterer = registry
}

// Serve exposes the registry over HTTP at /metrics.
func Serve(endpoint string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return http.ListenAndServe(endpoint, mux)
}

// MonitorMetrics counts what the monitor loop does per tick.
type MonitorMetrics struct {
	TicksProcessed    prometheus.Counter
	TicksDropped      prometheus.Counter
	EventsDropped     prometheus.Counter
	PairsRefreshed    prometheus.Counter
	RefreshErrors     prometheus.Counter
	PathsSearched     prometheus.Counter
	PathsSkipped      prometheus.Counter
	OpportunitiesFound prometheus.Counter
	TickLatency       prometheus.Histogram
	EvalLatency       prometheus.Histogram
	GraphNodes        prometheus.Gauge
	GraphEdges        prometheus.Gauge
}

// NewMonitorMetrics registers the monitor metric set under a namespace.
func NewMonitorMetrics(namespace string) *MonitorMetrics {
	return &MonitorMetrics{
		TicksProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_processed_total",
			Help:      "Total number of market ticks processed",
		}),
		TicksDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_dropped_total",
			Help:      "Total number of ticks dropped because the queue was full",
		}),
		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Total number of events dropped because no listener kept up",
		}),
		PairsRefreshed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairs_refreshed_total",
			Help:      "Total number of successful pair reserve refreshes",
		}),
		RefreshErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_errors_total",
			Help:      "Total number of failed pair reserve refreshes",
		}),
		PathsSearched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "paths_searched_total",
			Help:      "Total number of cycle paths evaluated",
		}),
		PathsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "paths_skipped_total",
			Help:      "Total number of paths dropped for missing or degenerate data",
		}),
		OpportunitiesFound: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "opportunities_found_total",
			Help:      "Total number of profitable opportunities emitted",
		}),
		TickLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_latency_seconds",
			Help:      "End-to-end tick processing latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		EvalLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "eval_latency_seconds",
			Help:      "Per-path evaluation latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 10),
		}),
		GraphNodes: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_nodes",
			Help:      "Current number of assets in the token graph",
		}),
		GraphEdges: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_edges",
			Help:      "Current number of pair edges in the token graph",
		}),
	}
}
