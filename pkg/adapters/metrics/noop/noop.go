// Package noop provides a MetricsCollector that discards everything.
// Used in tests and when metrics are disabled.
package noop

import "time"

// Collector implements ports.MetricsCollector as no-ops.
type Collector struct{}

// NewCollector creates a no-op metrics collector.
func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) RecordExecutionStarted()                                     {}
func (c *Collector) RecordExecutionCompleted(status string, d time.Duration)     {}
func (c *Collector) RecordNodeExecuted(nodeType, status string, d time.Duration) {}
func (c *Collector) RecordOptimizationPass(passType string)                      {}
func (c *Collector) RecordResourceViolation()                                    {}
func (c *Collector) RecordEventPublished(eventType string)                       {}
func (c *Collector) SetActiveExecutions(count int)                               {}
