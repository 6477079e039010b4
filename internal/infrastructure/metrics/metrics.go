package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "flow_tracer"

// Outcome labels
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeNotFound = "not_found"
)

// Collectors groups the tracer's prometheus instruments
type Collectors struct {
	registry *prometheus.Registry

	LedgerFetches       *prometheus.CounterVec
	LedgerFetchDuration *prometheus.HistogramVec
	Operations          *prometheus.CounterVec
	OperationDuration   *prometheus.HistogramVec
	GraphNodes          prometheus.Histogram
}

// NewCollectors registers all collectors on a dedicated registry
func NewCollectors() *Collectors {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Collectors{
		registry: reg,
		LedgerFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_fetch_total",
			Help:      "Ledger source calls by source, operation and outcome",
		}, []string{"source", "operation", "outcome"}),
		LedgerFetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_fetch_duration_seconds",
			Help:      "Ledger source call latency",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		}, []string{"source", "operation"}),
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_total",
			Help:      "Tracing operations by name and outcome",
		}, []string{"operation", "outcome"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "End-to-end duration of tracing operations",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"operation"}),
		GraphNodes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graph_nodes",
			Help:      "Node count of built graphs",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}

// ObserveFetch records a single ledger call
func (c *Collectors) ObserveFetch(source, operation, outcome string, elapsed time.Duration) {
	c.LedgerFetches.WithLabelValues(source, operation, outcome).Inc()
	c.LedgerFetchDuration.WithLabelValues(source, operation).Observe(elapsed.Seconds())
}

// ObserveOperation records a tracing operation
func (c *Collectors) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	c.Operations.WithLabelValues(operation, outcome).Inc()
	c.OperationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry
func (c *Collectors) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the prometheus exposition format
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
