package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes operation metrics to Prometheus on its own registry.
type Collector struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	touched    *prometheus.CounterVec
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector with the Go runtime collectors registered.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	operations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipe_box_operations_total",
			Help: "Planner operations by name and outcome",
		},
		[]string{"operation", "outcome"},
	)
	latency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recipe_box_operation_duration_seconds",
			Help:    "Time taken by planner operations",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		},
		[]string{"operation"},
	)
	touched := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipe_box_items_touched_total",
			Help: "Shopping list items created or updated",
		},
		[]string{"operation"},
	)

	registry.MustRegister(
		operations, latency, touched,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Collector{
		registry:   registry,
		operations: operations,
		latency:    latency,
		touched:    touched,
	}
}

// Record updates the Prometheus series for m. It never fails.
func (c *Collector) Record(_ context.Context, m OperationMetric) error {
	c.operations.WithLabelValues(m.Operation, m.Outcome).Inc()
	c.latency.WithLabelValues(m.Operation).Observe(float64(m.LatencyMS) / 1000)
	if m.ItemsTouched > 0 {
		c.touched.WithLabelValues(m.Operation).Add(float64(m.ItemsTouched))
	}
	return nil
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
