package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements ports.MetricsCollector using Prometheus.
type Collector struct {
	executionsStarted   prometheus.Counter
	executionsCompleted *prometheus.CounterVec
	executionDuration   *prometheus.HistogramVec
	nodesExecuted       *prometheus.CounterVec
	nodeDuration        *prometheus.HistogramVec
	optimizationPasses  *prometheus.CounterVec
	resourceViolations  prometheus.Counter
	eventsPublished     *prometheus.CounterVec
	activeExecutions    prometheus.Gauge
}

// NewCollector creates a new Prometheus metrics collector.
func NewCollector() *Collector {
	return &Collector{
		executionsStarted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "flowforge_executions_started_total",
				Help: "Total number of graph executions started",
			},
		),
		executionsCompleted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowforge_executions_completed_total",
				Help: "Total number of graph executions finished, by status",
			},
			[]string{"status"},
		),
		executionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flowforge_execution_duration_seconds",
				Help:    "Graph execution duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"status"},
		),
		nodesExecuted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowforge_nodes_executed_total",
				Help: "Total number of nodes executed",
			},
			[]string{"node_type", "status"},
		),
		nodeDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flowforge_node_duration_seconds",
				Help:    "Node execution duration in seconds",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"node_type"},
		),
		optimizationPasses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowforge_optimization_passes_total",
				Help: "Total number of optimizer passes run",
			},
			[]string{"pass"},
		),
		resourceViolations: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "flowforge_resource_violations_total",
				Help: "Total number of denied resource allocations",
			},
		),
		eventsPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowforge_events_published_total",
				Help: "Total number of events published to the event bus",
			},
			[]string{"event_type"},
		),
		activeExecutions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "flowforge_active_executions",
				Help: "Number of currently active executions",
			},
		),
	}
}

// RecordExecutionStarted increments the started-executions counter.
func (c *Collector) RecordExecutionStarted() {
	c.executionsStarted.Inc()
}

// RecordExecutionCompleted records an execution's terminal status and duration.
func (c *Collector) RecordExecutionCompleted(status string, duration time.Duration) {
	c.executionsCompleted.WithLabelValues(status).Inc()
	c.executionDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordNodeExecuted records a node execution.
func (c *Collector) RecordNodeExecuted(nodeType, status string, duration time.Duration) {
	c.nodesExecuted.WithLabelValues(nodeType, status).Inc()
	c.nodeDuration.WithLabelValues(nodeType).Observe(duration.Seconds())
}

// RecordOptimizationPass counts one optimizer pass run.
func (c *Collector) RecordOptimizationPass(passType string) {
	c.optimizationPasses.WithLabelValues(passType).Inc()
}

// RecordResourceViolation counts a denied resource allocation.
func (c *Collector) RecordResourceViolation() {
	c.resourceViolations.Inc()
}

// RecordEventPublished counts an event published to the bus.
func (c *Collector) RecordEventPublished(eventType string) {
	c.eventsPublished.WithLabelValues(eventType).Inc()
}

// SetActiveExecutions sets the number of currently active executions.
func (c *Collector) SetActiveExecutions(count int) {
	c.activeExecutions.Set(float64(count))
}
