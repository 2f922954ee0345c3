package resources

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/flowforge-io/flowforge/pkg/domain"
)

// nodeCost is the per-type base cost model used for prediction and pricing.
type nodeCost struct {
	memoryMB    float64
	cpuPercent  float64
	durationSec float64
	tokens      int
	baseCost    float64
}

var baseCosts = map[domain.NodeType]nodeCost{
	domain.NodeTypeInput:     {memoryMB: 16, cpuPercent: 1, durationSec: 0.1, baseCost: 0.0001},
	domain.NodeTypeOutput:    {memoryMB: 16, cpuPercent: 1, durationSec: 0.1, baseCost: 0.0001},
	domain.NodeTypeLLM:       {memoryMB: 256, cpuPercent: 10, durationSec: 8, tokens: 1500, baseCost: 0.002},
	domain.NodeTypeRetrieval: {memoryMB: 128, cpuPercent: 8, durationSec: 1.5, baseCost: 0.0005},
	domain.NodeTypeTool:      {memoryMB: 64, cpuPercent: 5, durationSec: 2, baseCost: 0.0002},
	domain.NodeTypeTransform: {memoryMB: 32, cpuPercent: 2, durationSec: 0.5, baseCost: 0.0001},
}

var defaultCost = nodeCost{memoryMB: 64, cpuPercent: 5, durationSec: 1, baseCost: 0.0003}

func costFor(t domain.NodeType) nodeCost {
	if c, ok := baseCosts[t]; ok {
		return c
	}
	return defaultCost
}

// Limits caps the process-wide resource budget available to concurrent
// executions.
type Limits struct {
	TotalMemoryMB   float64
	TotalCPUPercent float64
	TotalTokens     float64
}

// DefaultLimits is used when the configuration provides none.
func DefaultLimits() Limits {
	return Limits{
		TotalMemoryMB:   8192,
		TotalCPUPercent: 800,
		TotalTokens:     1_000_000,
	}
}

// Metrics is a snapshot of cumulative manager counters.
type Metrics struct {
	AllocationsCreated   int64   `json:"allocations_created"`
	AllocationsCompleted int64   `json:"allocations_completed"`
	AllocationsFailed    int64   `json:"allocations_failed"`
	ResourceViolations   int64   `json:"resource_violations"`
	AutoScalingEvents    int64   `json:"auto_scaling_events"`
	PeakMemoryMB         float64 `json:"peak_memory_mb"`
	PeakCPUPercent       float64 `json:"peak_cpu_percent"`
}

// burstFactor bounds how far the effective budget may auto-scale above the
// configured limits under allocation pressure.
const burstFactor = 1.25

// Manager predicts and allocates resource budgets per execution. Concurrent
// allocations for different executions never interfere. A request exceeding
// the available budget first attempts an auto-scaling burst (up to
// burstFactor times the configured limits); beyond that it increments the
// violations counter and is denied.
type Manager struct {
	logger *zap.Logger
	limits Limits

	// Pricing knobs for LLM nodes.
	costPerToken      float64
	tokensPerCostUnit float64

	mu          sync.Mutex
	allocations map[string]*domain.ResourceAllocation
	effective   Limits
	usedMemory  float64
	usedCPU     float64
	usedTokens  float64
	metrics     Metrics
}

// NewManager creates a resource manager with the given process-wide limits.
func NewManager(limits Limits, logger *zap.Logger) *Manager {
	if limits.TotalMemoryMB <= 0 {
		limits = DefaultLimits()
	}
	return &Manager{
		logger:            logger,
		limits:            limits,
		effective:         limits,
		costPerToken:      0.000003,
		tokensPerCostUnit: 1 / 0.000003,
		allocations:       make(map[string]*domain.ResourceAllocation),
	}
}

// Limits returns the configured process-wide budget.
func (m *Manager) Limits() Limits {
	return m.limits
}

// PredictResourceUsage sums the per-type base cost model across all nodes.
// Confidence grows with the amount of history available, capped at 0.9.
func (m *Manager) PredictResourceUsage(nodes []domain.Node, history []*domain.ExecutionResult) *domain.ResourcePrediction {
	p := &domain.ResourcePrediction{
		ResourceRequirements: make(map[domain.ResourceType]float64),
	}
	for _, n := range nodes {
		c := costFor(n.Type)
		p.EstimatedMemoryMB += c.memoryMB
		p.EstimatedCPUPercent += c.cpuPercent
		p.EstimatedDurationSeconds += c.durationSec
		p.EstimatedTokens += c.tokens
	}

	p.ConfidenceScore = 0.5 + 0.05*float64(len(history))
	if p.ConfidenceScore > 0.9 {
		p.ConfidenceScore = 0.9
	}

	p.ResourceRequirements[domain.ResourceMemory] = p.EstimatedMemoryMB
	p.ResourceRequirements[domain.ResourceCPU] = p.EstimatedCPUPercent
	if p.EstimatedTokens > 0 {
		p.ResourceRequirements[domain.ResourceTokens] = float64(p.EstimatedTokens)
	}
	return p
}

// AnalyzeExecutionCost prices a node list with the per-type cost model.
// LLM nodes are additionally priced per token. OptimizationSavings is the
// cost of duplicate nodes (same type, structurally equal config) beyond
// the first occurrence, i.e. what result caching could recover.
func (m *Manager) AnalyzeExecutionCost(nodes []domain.Node) *domain.CostAnalysis {
	analysis := &domain.CostAnalysis{
		CostBreakdown: make(map[string]float64),
		CostPerNode:   make(map[string]float64),
	}

	seen := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		c := costFor(n.Type)
		cost := c.baseCost
		if n.Type == domain.NodeTypeLLM {
			cost += float64(c.tokens) * m.costPerToken
		}
		analysis.CostPerNode[n.ID] = cost
		analysis.CostBreakdown[string(n.Type)] += cost
		analysis.EstimatedCost += cost

		key := string(n.Type) + "|" + fmt.Sprintf("%v", n.Config)
		if _, dup := seen[key]; dup {
			analysis.OptimizationSavings += cost
		} else {
			seen[key] = struct{}{}
		}
	}
	return analysis
}

// AllocateResources reserves the requested quantities against the
// process-wide budget and returns an active allocation. The caller must
// release it via ReleaseResources on every exit path.
func (m *Manager) AllocateResources(executionID string, requirements map[domain.ResourceType]float64) (*domain.ResourceAllocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.allocations[executionID]; exists {
		return nil, fmt.Errorf("allocation already active for execution %s", executionID)
	}

	mem := requirements[domain.ResourceMemory]
	cpu := requirements[domain.ResourceCPU]
	tokens := requirements[domain.ResourceTokens]

	if m.usedMemory+mem > m.effective.TotalMemoryMB ||
		m.usedCPU+cpu > m.effective.TotalCPUPercent ||
		m.usedTokens+tokens > m.effective.TotalTokens {
		if !m.scaleUp(mem, cpu, tokens) {
			m.metrics.ResourceViolations++
			m.metrics.AllocationsFailed++
			m.logger.Warn("resource allocation denied",
				zap.String("execution_id", executionID),
				zap.Float64("requested_memory_mb", mem),
				zap.Float64("available_memory_mb", m.effective.TotalMemoryMB-m.usedMemory))
			return nil, fmt.Errorf("insufficient resources for execution %s", executionID)
		}
	}

	m.usedMemory += mem
	m.usedCPU += cpu
	m.usedTokens += tokens
	if m.usedMemory > m.metrics.PeakMemoryMB {
		m.metrics.PeakMemoryMB = m.usedMemory
	}
	if m.usedCPU > m.metrics.PeakCPUPercent {
		m.metrics.PeakCPUPercent = m.usedCPU
	}
	m.metrics.AllocationsCreated++

	alloc := &domain.ResourceAllocation{
		ExecutionID:        executionID,
		AllocatedResources: cloneRequirements(requirements),
		Status:             domain.AllocationActive,
		CreatedAt:          time.Now(),
	}
	m.allocations[executionID] = alloc

	m.logger.Debug("resources allocated",
		zap.String("execution_id", executionID),
		zap.Float64("memory_mb", mem),
		zap.Float64("cpu_percent", cpu))
	return alloc, nil
}

// scaleUp grows the effective budget to fit the request, bounded by
// burstFactor times the configured limits. Called under m.mu.
func (m *Manager) scaleUp(mem, cpu, tokens float64) bool {
	neededMem := m.usedMemory + mem
	neededCPU := m.usedCPU + cpu
	neededTokens := m.usedTokens + tokens

	if neededMem > m.limits.TotalMemoryMB*burstFactor ||
		neededCPU > m.limits.TotalCPUPercent*burstFactor ||
		neededTokens > m.limits.TotalTokens*burstFactor {
		return false
	}

	if neededMem > m.effective.TotalMemoryMB {
		m.effective.TotalMemoryMB = neededMem
	}
	if neededCPU > m.effective.TotalCPUPercent {
		m.effective.TotalCPUPercent = neededCPU
	}
	if neededTokens > m.effective.TotalTokens {
		m.effective.TotalTokens = neededTokens
	}
	m.metrics.AutoScalingEvents++
	m.logger.Info("resource budget auto-scaled",
		zap.Float64("effective_memory_mb", m.effective.TotalMemoryMB),
		zap.Float64("effective_cpu_percent", m.effective.TotalCPUPercent))
	return true
}

// ReleaseResources returns an execution's reservation to the budget.
// Releasing an unknown or already-released execution is a no-op. Once usage
// drops back within the configured limits, any auto-scaled headroom is
// retired.
func (m *Manager) ReleaseResources(executionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	alloc, ok := m.allocations[executionID]
	if !ok || alloc.Status != domain.AllocationActive {
		return
	}

	m.usedMemory -= alloc.AllocatedResources[domain.ResourceMemory]
	m.usedCPU -= alloc.AllocatedResources[domain.ResourceCPU]
	m.usedTokens -= alloc.AllocatedResources[domain.ResourceTokens]
	now := time.Now()
	alloc.Status = domain.AllocationReleased
	alloc.ReleasedAt = &now
	delete(m.allocations, executionID)
	m.metrics.AllocationsCompleted++

	if m.usedMemory <= m.limits.TotalMemoryMB &&
		m.usedCPU <= m.limits.TotalCPUPercent &&
		m.usedTokens <= m.limits.TotalTokens {
		m.effective = m.limits
	}

	m.logger.Debug("resources released", zap.String("execution_id", executionID))
}

// GetResourceUsage returns the active allocation for an execution, or nil
// once it has been released.
func (m *Manager) GetResourceUsage(executionID string) *domain.ResourceAllocation {
	m.mu.Lock()
	defer m.mu.Unlock()

	alloc, ok := m.allocations[executionID]
	if !ok {
		return nil
	}
	copied := *alloc
	copied.AllocatedResources = cloneRequirements(alloc.AllocatedResources)
	return &copied
}

// GetAvailableResources reports the currently unreserved budget.
func (m *Manager) GetAvailableResources() map[domain.ResourceType]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return map[domain.ResourceType]float64{
		domain.ResourceMemory: m.effective.TotalMemoryMB - m.usedMemory,
		domain.ResourceCPU:    m.effective.TotalCPUPercent - m.usedCPU,
		domain.ResourceTokens: m.effective.TotalTokens - m.usedTokens,
	}
}

// GetMetrics returns a snapshot of the cumulative counters.
func (m *Manager) GetMetrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metrics
}

func cloneRequirements(in map[domain.ResourceType]float64) map[domain.ResourceType]float64 {
	out := make(map[domain.ResourceType]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
