package workers

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/flowforge-io/flowforge/internal/engine/execution"
	"github.com/flowforge-io/flowforge/internal/engine/resources"
	"github.com/flowforge-io/flowforge/pkg/domain"
	"github.com/flowforge-io/flowforge/pkg/ports"
)

// memoryWarnThreshold triggers a warning when available memory drops
// below this fraction of the configured limit.
const memoryWarnThreshold = 0.1

// HealthMonitor samples engine load on an interval: active executions,
// available resources, and cumulative counters.
type HealthMonitor struct {
	contexts  *execution.ContextManager
	resources *resources.Manager
	metrics   ports.MetricsCollector
	interval  time.Duration
	logger    *zap.Logger

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	last    HealthStatus
}

// HealthStatus is one sample of engine health.
type HealthStatus struct {
	ActiveExecutions  int                             `json:"active_executions"`
	AvailableMemoryMB float64                         `json:"available_memory_mb"`
	Available         map[domain.ResourceType]float64 `json:"available"`
	Healthy           bool                            `json:"healthy"`
	Timestamp         time.Time                       `json:"timestamp"`
}

// NewHealthMonitor creates a health monitor sampling at the given interval.
func NewHealthMonitor(
	contexts *execution.ContextManager,
	rm *resources.Manager,
	metrics ports.MetricsCollector,
	interval time.Duration,
	logger *zap.Logger,
) *HealthMonitor {
	return &HealthMonitor{
		contexts:  contexts,
		resources: rm,
		metrics:   metrics,
		interval:  interval,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

// Start launches the sampling loop.
func (h *HealthMonitor) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

// Stop halts the sampling loop.
func (h *HealthMonitor) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.stopCh)
}

// Status returns the most recent sample.
func (h *HealthMonitor) Status() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.last.Timestamp.IsZero() {
		return h.sample()
	}
	return h.last
}

func (h *HealthMonitor) run() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.checkHealth()
		}
	}
}

func (h *HealthMonitor) checkHealth() {
	status := h.sample()

	h.mu.Lock()
	h.last = status
	h.mu.Unlock()

	h.metrics.SetActiveExecutions(status.ActiveExecutions)

	if !status.Healthy {
		h.logger.Warn("engine under memory pressure",
			zap.Float64("available_memory_mb", status.AvailableMemoryMB),
			zap.Int("active_executions", status.ActiveExecutions))
		return
	}

	h.logger.Debug("engine health sampled",
		zap.Int("active_executions", status.ActiveExecutions),
		zap.Float64("available_memory_mb", status.AvailableMemoryMB))
}

func (h *HealthMonitor) sample() HealthStatus {
	available := h.resources.GetAvailableResources()
	availableMem := available[domain.ResourceMemory]
	limit := h.resources.Limits().TotalMemoryMB

	return HealthStatus{
		ActiveExecutions:  h.contexts.ActiveCount(),
		AvailableMemoryMB: availableMem,
		Available:         available,
		Healthy:           limit <= 0 || availableMem > limit*memoryWarnThreshold,
		Timestamp:         time.Now(),
	}
}
