package optimizer

import (
	"fmt"

	"github.com/flowforge-io/flowforge/pkg/domain"
)

// batching discounts applied to each node beyond the first in a batch of
// nodes sharing a type and level.
const (
	batchMemoryDiscount   = 0.2
	batchCPUDiscount      = 0.15
	batchDurationDiscount = 0.3
)

// OptimizeResources predicts resource usage before and after batching
// compatible nodes (same type, same level) and reports the percentage
// improvement per dimension. When the execution config caps wall clock,
// estimated durations are bounded by max_execution_time.
func (o *Optimizer) OptimizeResources(nodes []domain.Node, plan, groups [][]string, config *domain.ExecutionConfig) domain.OptimizationResult {
	result := domain.OptimizationResult{
		Type:               domain.OptimizationResources,
		Success:            true,
		MetricsImprovement: map[string]float64{},
		Metadata:           map[string]interface{}{},
	}

	before := o.resources.PredictResourceUsage(nodes, nil)

	// Batch nodes by (type, level): every member beyond the first gets the
	// batching discount on its own contribution.
	batches := make(map[string][]string)
	for _, n := range nodes {
		key := fmt.Sprintf("%s@%d", n.Type, n.ExecutionOrder)
		batches[key] = append(batches[key], n.ID)
	}

	working := cloneNodes(nodes)
	byID := make(map[string]*domain.Node, len(working))
	for i := range working {
		byID[working[i].ID] = &working[i]
	}

	after := *before
	var batchedNodes []string
	for key, members := range batches {
		if len(members) < 2 {
			continue
		}
		for _, id := range members[1:] {
			single := o.resources.PredictResourceUsage([]domain.Node{*byID[id]}, nil)
			after.EstimatedMemoryMB -= single.EstimatedMemoryMB * batchMemoryDiscount
			after.EstimatedCPUPercent -= single.EstimatedCPUPercent * batchCPUDiscount
			after.EstimatedDurationSeconds -= single.EstimatedDurationSeconds * batchDurationDiscount
			batchedNodes = append(batchedNodes, id)
		}
		for _, id := range members {
			if byID[id].Metadata == nil {
				byID[id].Metadata = map[string]interface{}{}
			}
			byID[id].Metadata["batch_group"] = key
		}
	}

	if config != nil && config.MaxExecutionTime > 0 {
		limit := float64(config.MaxExecutionTime)
		if before.EstimatedDurationSeconds > limit {
			before.EstimatedDurationSeconds = limit
		}
		if after.EstimatedDurationSeconds > limit {
			after.EstimatedDurationSeconds = limit
		}
	}

	result.Nodes = working
	result.ExecutionPlan, result.ParallelGroups = buildPlan(working)
	result.MetricsImprovement["memory_improvement_percent"] = improvementPercent(before.EstimatedMemoryMB, after.EstimatedMemoryMB)
	result.MetricsImprovement["cpu_improvement_percent"] = improvementPercent(before.EstimatedCPUPercent, after.EstimatedCPUPercent)
	result.MetricsImprovement["time_improvement_percent"] = improvementPercent(before.EstimatedDurationSeconds, after.EstimatedDurationSeconds)
	result.Metadata["batched_nodes"] = batchedNodes
	result.Metadata["predicted_before"] = before
	result.Metadata["predicted_after"] = &after
	return result
}

// OptimizeCost analyzes execution cost before and after applying the
// achievable savings (duplicate work recoverable by result caching).
func (o *Optimizer) OptimizeCost(nodes []domain.Node, plan, groups [][]string) domain.OptimizationResult {
	result := domain.OptimizationResult{
		Type:               domain.OptimizationCost,
		Success:            true,
		MetricsImprovement: map[string]float64{},
		Metadata:           map[string]interface{}{},
	}

	before := o.resources.AnalyzeExecutionCost(nodes)
	afterCost := before.EstimatedCost - before.OptimizationSavings

	result.Nodes = cloneNodes(nodes)
	result.ExecutionPlan, result.ParallelGroups = buildPlan(result.Nodes)
	result.MetricsImprovement["cost_savings_amount"] = before.OptimizationSavings
	result.MetricsImprovement["cost_savings_percent"] = improvementPercent(before.EstimatedCost, afterCost)
	result.Metadata["cost_breakdown"] = before.CostBreakdown
	result.Metadata["estimated_cost"] = before.EstimatedCost
	return result
}

func improvementPercent(before, after float64) float64 {
	if before <= 0 {
		return 0
	}
	return (before - after) / before * 100
}
