package graph

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus metrics for graph execution.
//
// Metrics exposed (namespace "prosearch"):
//
//   - steps_total (counter): completed node executions.
//     Labels: node_id, status (success/error).
//   - step_latency_ms (histogram): node execution duration in
//     milliseconds. Labels: node_id.
//   - fanout_tasks (histogram): width of each dispatched fan-out batch.
//
// Expose via HTTP for scraping:
//
//	registry := prometheus.NewRegistry()
//	metrics := graph.NewMetrics(registry)
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
//
// All methods are safe for concurrent use.
type Metrics struct {
	steps       *prometheus.CounterVec
	stepLatency *prometheus.HistogramVec
	fanoutTasks prometheus.Histogram
}

// NewMetrics creates and registers the graph execution metrics with the
// provided registry. A nil registry uses the default global registerer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		steps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prosearch",
			Name:      "steps_total",
			Help:      "Completed node executions by node and status.",
		}, []string{"node_id", "status"}),
		stepLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "prosearch",
			Name:      "step_latency_ms",
			Help:      "Node execution latency in milliseconds.",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 30000},
		}, []string{"node_id"}),
		fanoutTasks: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "prosearch",
			Name:      "fanout_tasks",
			Help:      "Number of concurrent tasks per fan-out batch.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		}),
	}
}

// ObserveStep records one completed node execution.
func (m *Metrics) ObserveStep(nodeID, status string, d time.Duration) {
	m.steps.WithLabelValues(nodeID, status).Inc()
	m.stepLatency.WithLabelValues(nodeID).Observe(float64(d.Milliseconds()))
}

// ObserveFanOut records the width of a dispatched fan-out batch.
func (m *Metrics) ObserveFanOut(width int) {
	m.fanoutTasks.Observe(float64(width))
}
