package optimizer

import (
	"go.uber.org/zap"

	"github.com/flowforge-io/flowforge/pkg/domain"
)

// OptimizeEdges removes transitively redundant dependencies: a dependency
// A of node C is redundant when A is reachable from another dependency B
// of C, because the path A -> ... -> B -> C already orders them.
func (o *Optimizer) OptimizeEdges(nodes []domain.Node, plan, groups [][]string) domain.OptimizationResult {
	result := domain.OptimizationResult{
		Type:               domain.OptimizationEdges,
		Success:            true,
		MetricsImprovement: map[string]float64{},
		Metadata:           map[string]interface{}{},
	}

	working := cloneNodes(nodes)
	byID := make(map[string]*domain.Node, len(working))
	for i := range working {
		byID[working[i].ID] = &working[i]
	}

	// reachable reports whether target is reachable from start by walking
	// dependency chains backwards.
	var reachable func(start, target string, seen map[string]struct{}) bool
	reachable = func(start, target string, seen map[string]struct{}) bool {
		if start == target {
			return true
		}
		if _, loop := seen[start]; loop {
			return false
		}
		seen[start] = struct{}{}
		node, ok := byID[start]
		if !ok {
			return false
		}
		for _, dep := range node.Dependencies {
			if reachable(dep, target, seen) {
				return true
			}
		}
		return false
	}

	var removed int
	for i := range working {
		deps := append([]string(nil), working[i].Dependencies...)
		kept := make([]string, 0, len(deps))
		for j, candidate := range deps {
			redundant := false
			for k, other := range deps {
				if j == k {
					continue
				}
				if reachable(other, candidate, map[string]struct{}{}) {
					redundant = true
					break
				}
			}
			if redundant {
				removed++
				continue
			}
			kept = append(kept, candidate)
		}
		working[i].Dependencies = kept
	}

	result.Nodes = working
	result.ExecutionPlan, result.ParallelGroups = buildPlan(working)
	result.MetricsImprovement["edge_count_reduction"] = float64(removed)
	result.Metadata["removed_edge_count"] = removed

	if removed > 0 {
		o.logger.Debug("redundant edges pruned", zap.Int("removed", removed))
	}
	return result
}
