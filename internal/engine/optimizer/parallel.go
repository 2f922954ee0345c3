package optimizer

import (
	"github.com/flowforge-io/flowforge/pkg/domain"
)

// OptimizeParallelExecution re-levels the graph to maximize the width of
// each level and reports the critical path: the longest dependency chain
// through the graph, measured in nodes, which bounds the minimum
// achievable execution time.
func (o *Optimizer) OptimizeParallelExecution(nodes []domain.Node, plan, groups [][]string) domain.OptimizationResult {
	result := domain.OptimizationResult{
		Type:               domain.OptimizationParallel,
		Success:            true,
		MetricsImprovement: map[string]float64{},
		Metadata:           map[string]interface{}{},
	}

	working := cloneNodes(nodes)
	result.Nodes = working
	result.ExecutionPlan, result.ParallelGroups = buildPlan(working)

	var oldWidth, newWidth int
	for _, level := range plan {
		if len(level) > oldWidth {
			oldWidth = len(level)
		}
	}
	for _, level := range result.ExecutionPlan {
		if len(level) > newWidth {
			newWidth = len(level)
		}
	}

	result.MetricsImprovement["parallelism_improvement"] = float64(newWidth - oldWidth)
	result.Metadata["max_parallel_width"] = newWidth
	result.Metadata["critical_path_length"] = criticalPathLength(working)
	result.Metadata["parallel_group_count"] = len(result.ParallelGroups)
	return result
}

// criticalPathLength returns the node count of the longest dependency
// chain.
func criticalPathLength(nodes []domain.Node) int {
	byID := make(map[string]*domain.Node, len(nodes))
	for i := range nodes {
		byID[nodes[i].ID] = &nodes[i]
	}

	memo := make(map[string]int, len(nodes))
	var chain func(id string) int
	chain = func(id string) int {
		if v, ok := memo[id]; ok {
			return v
		}
		longest := 0
		for _, dep := range byID[id].Dependencies {
			if _, in := byID[dep]; !in {
				continue
			}
			if l := chain(dep); l > longest {
				longest = l
			}
		}
		memo[id] = longest + 1
		return memo[id]
	}

	best := 0
	for id := range byID {
		if l := chain(id); l > best {
			best = l
		}
	}
	return best
}
