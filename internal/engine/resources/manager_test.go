package resources

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flowforge-io/flowforge/pkg/domain"
)

func testNodes() []domain.Node {
	return []domain.Node{
		{ID: "in", Type: domain.NodeTypeInput},
		{ID: "gen", Type: domain.NodeTypeLLM},
		{ID: "out", Type: domain.NodeTypeOutput},
	}
}

func TestPredictResourceUsage_SumsBaseCosts(t *testing.T) {
	m := NewManager(DefaultLimits(), zap.NewNop())

	p := m.PredictResourceUsage(testNodes(), nil)

	assert.Equal(t, 16.0+256.0+16.0, p.EstimatedMemoryMB)
	assert.Equal(t, 1.0+10.0+1.0, p.EstimatedCPUPercent)
	assert.Equal(t, 1500, p.EstimatedTokens)
	assert.Equal(t, p.EstimatedMemoryMB, p.ResourceRequirements[domain.ResourceMemory])
	assert.InDelta(t, 0.5, p.ConfidenceScore, 0.001)
}

func TestPredictResourceUsage_ConfidenceGrowsWithHistory(t *testing.T) {
	m := NewManager(DefaultLimits(), zap.NewNop())

	history := make([]*domain.ExecutionResult, 20)
	p := m.PredictResourceUsage(testNodes(), history)

	assert.InDelta(t, 0.9, p.ConfidenceScore, 0.001)
}

func TestAnalyzeExecutionCost_LLMPricedPerToken(t *testing.T) {
	m := NewManager(DefaultLimits(), zap.NewNop())

	analysis := m.AnalyzeExecutionCost(testNodes())

	llmCost := analysis.CostPerNode["gen"]
	assert.Greater(t, llmCost, analysis.CostPerNode["in"])
	assert.InDelta(t, 0.002+1500*0.000003, llmCost, 1e-9)
	assert.InDelta(t, analysis.CostPerNode["in"]+llmCost+analysis.CostPerNode["out"],
		analysis.EstimatedCost, 1e-9)
}

func TestAnalyzeExecutionCost_DuplicatesAreSavings(t *testing.T) {
	m := NewManager(DefaultLimits(), zap.NewNop())
	cfg := map[string]interface{}{"prompt": "same"}
	nodes := []domain.Node{
		{ID: "a", Type: domain.NodeTypeLLM, Config: cfg},
		{ID: "b", Type: domain.NodeTypeLLM, Config: cfg},
	}

	analysis := m.AnalyzeExecutionCost(nodes)

	assert.InDelta(t, analysis.CostPerNode["b"], analysis.OptimizationSavings, 1e-9)
}

func TestAllocateAndRelease(t *testing.T) {
	m := NewManager(Limits{TotalMemoryMB: 512, TotalCPUPercent: 100, TotalTokens: 10000}, zap.NewNop())

	req := map[domain.ResourceType]float64{
		domain.ResourceMemory: 256,
		domain.ResourceCPU:    50,
	}
	alloc, err := m.AllocateResources("exec-1", req)
	require.NoError(t, err)
	assert.Equal(t, domain.AllocationActive, alloc.Status)

	usage := m.GetResourceUsage("exec-1")
	require.NotNil(t, usage)
	assert.Equal(t, 256.0, usage.AllocatedResources[domain.ResourceMemory])

	avail := m.GetAvailableResources()
	assert.Equal(t, 256.0, avail[domain.ResourceMemory])

	m.ReleaseResources("exec-1")
	assert.Nil(t, m.GetResourceUsage("exec-1"))
	assert.Equal(t, 512.0, m.GetAvailableResources()[domain.ResourceMemory])

	// Releasing again is harmless.
	m.ReleaseResources("exec-1")
	assert.Equal(t, 512.0, m.GetAvailableResources()[domain.ResourceMemory])
}

func TestAllocate_DeniedIncrementsViolations(t *testing.T) {
	m := NewManager(Limits{TotalMemoryMB: 100, TotalCPUPercent: 100, TotalTokens: 100}, zap.NewNop())

	_, err := m.AllocateResources("exec-1", map[domain.ResourceType]float64{
		domain.ResourceMemory: 200,
	})

	require.Error(t, err)
	metrics := m.GetMetrics()
	assert.Equal(t, int64(1), metrics.ResourceViolations)
	assert.Equal(t, int64(1), metrics.AllocationsFailed)
	assert.Nil(t, m.GetResourceUsage("exec-1"))
}

func TestAllocate_BurstScalesBudget(t *testing.T) {
	m := NewManager(Limits{TotalMemoryMB: 100, TotalCPUPercent: 100, TotalTokens: 100}, zap.NewNop())

	_, err := m.AllocateResources("exec-1", map[domain.ResourceType]float64{
		domain.ResourceMemory: 80,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), m.GetMetrics().AutoScalingEvents)

	// 120 total fits within burstFactor (125), so the budget scales up.
	_, err = m.AllocateResources("exec-2", map[domain.ResourceType]float64{
		domain.ResourceMemory: 40,
	})
	require.NoError(t, err)

	metrics := m.GetMetrics()
	assert.Equal(t, int64(1), metrics.AutoScalingEvents)
	assert.Equal(t, int64(0), metrics.ResourceViolations)
	assert.Equal(t, 0.0, m.GetAvailableResources()[domain.ResourceMemory])

	// Beyond the burst ceiling is still a violation.
	_, err = m.AllocateResources("exec-3", map[domain.ResourceType]float64{
		domain.ResourceMemory: 50,
	})
	require.Error(t, err)
	assert.Equal(t, int64(1), m.GetMetrics().ResourceViolations)

	// Releasing back under the configured limits retires the headroom.
	m.ReleaseResources("exec-2")
	m.ReleaseResources("exec-1")
	assert.Equal(t, 100.0, m.GetAvailableResources()[domain.ResourceMemory])
}

func TestAllocate_ConcurrentExecutionsDoNotInterfere(t *testing.T) {
	m := NewManager(Limits{TotalMemoryMB: 10000, TotalCPUPercent: 10000, TotalTokens: 1e9}, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("exec-%d", i)
			req := map[domain.ResourceType]float64{domain.ResourceMemory: 100}
			_, err := m.AllocateResources(id, req)
			assert.NoError(t, err)
			assert.NotNil(t, m.GetResourceUsage(id))
			m.ReleaseResources(id)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10000.0, m.GetAvailableResources()[domain.ResourceMemory])
	metrics := m.GetMetrics()
	assert.Equal(t, int64(10), metrics.AllocationsCreated)
	assert.Equal(t, int64(10), metrics.AllocationsCompleted)
}
