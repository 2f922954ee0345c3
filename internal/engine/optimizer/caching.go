package optimizer

import (
	"github.com/flowforge-io/flowforge/pkg/domain"
)

// caching strategy tags assigned per node type.
const (
	strategyResponseCaching = "response_caching"
	strategyVectorCaching   = "vector_caching"
	strategyResultCaching   = "result_caching"
)

// OptimizeCaching assigns a caching strategy tag to every node based on
// its type and reports the coverage percentage.
func (o *Optimizer) OptimizeCaching(nodes []domain.Node, plan, groups [][]string) domain.OptimizationResult {
	result := domain.OptimizationResult{
		Type:               domain.OptimizationCaching,
		Success:            true,
		MetricsImprovement: map[string]float64{},
		Metadata:           map[string]interface{}{},
	}

	working := cloneNodes(nodes)
	strategies := make(map[string]string, len(working))
	var covered int
	for i := range working {
		var strategy string
		switch working[i].Type {
		case domain.NodeTypeLLM:
			strategy = strategyResponseCaching
		case domain.NodeTypeRetrieval:
			strategy = strategyVectorCaching
		default:
			strategy = strategyResultCaching
		}
		if working[i].Metadata == nil {
			working[i].Metadata = map[string]interface{}{}
		}
		working[i].Metadata["caching_strategy"] = strategy
		strategies[working[i].ID] = strategy
		covered++
	}

	coverage := 0.0
	if len(working) > 0 {
		coverage = float64(covered) / float64(len(working)) * 100
	}

	result.Nodes = working
	result.ExecutionPlan, result.ParallelGroups = buildPlan(working)
	result.MetricsImprovement["cache_coverage_percent"] = coverage
	result.Metadata["strategies"] = strategies
	return result
}
