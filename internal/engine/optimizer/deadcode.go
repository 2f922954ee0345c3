package optimizer

import (
	"go.uber.org/zap"

	"github.com/flowforge-io/flowforge/pkg/domain"
)

// EliminateDeadCode drops nodes that lie on no input-to-output path.
// Declared input and output nodes are never removed. Applying the pass to
// its own result yields zero further reduction.
func (o *Optimizer) EliminateDeadCode(nodes []domain.Node, plan, groups [][]string) domain.OptimizationResult {
	result := domain.OptimizationResult{
		Type:               domain.OptimizationDeadCode,
		Success:            true,
		MetricsImprovement: map[string]float64{},
		Metadata:           map[string]interface{}{},
	}

	byID := make(map[string]*domain.Node, len(nodes))
	children := make(map[string][]string, len(nodes))
	for i := range nodes {
		byID[nodes[i].ID] = &nodes[i]
	}
	for _, n := range nodes {
		for _, dep := range n.Dependencies {
			children[dep] = append(children[dep], n.ID)
		}
	}

	// Forward reachability from input nodes.
	forward := make(map[string]struct{})
	var walkForward func(id string)
	walkForward = func(id string) {
		if _, seen := forward[id]; seen {
			return
		}
		forward[id] = struct{}{}
		for _, child := range children[id] {
			walkForward(child)
		}
	}

	// Backward reachability from output nodes.
	backward := make(map[string]struct{})
	var walkBackward func(id string)
	walkBackward = func(id string) {
		if _, seen := backward[id]; seen {
			return
		}
		backward[id] = struct{}{}
		for _, dep := range byID[id].Dependencies {
			if _, in := byID[dep]; in {
				walkBackward(dep)
			}
		}
	}

	for _, n := range nodes {
		switch n.Type {
		case domain.NodeTypeInput:
			walkForward(n.ID)
		case domain.NodeTypeOutput:
			walkBackward(n.ID)
		}
	}

	var removed []string
	kept := make([]domain.Node, 0, len(nodes))
	for _, n := range cloneNodes(nodes) {
		_, fwd := forward[n.ID]
		_, bwd := backward[n.ID]
		onPath := fwd && bwd
		if !onPath && n.Type != domain.NodeTypeInput && n.Type != domain.NodeTypeOutput {
			removed = append(removed, n.ID)
			continue
		}
		kept = append(kept, n)
	}

	// Drop dependencies pointing at removed nodes before re-leveling.
	keptIDs := make(map[string]struct{}, len(kept))
	for _, n := range kept {
		keptIDs[n.ID] = struct{}{}
	}
	for i := range kept {
		deps := kept[i].Dependencies[:0]
		for _, dep := range kept[i].Dependencies {
			if _, in := keptIDs[dep]; in {
				deps = append(deps, dep)
			}
		}
		kept[i].Dependencies = deps
	}

	result.Nodes = kept
	result.ExecutionPlan, result.ParallelGroups = buildPlan(kept)
	result.MetricsImprovement["node_count_reduction"] = float64(len(removed))
	result.Metadata["removed_nodes"] = removed

	if len(removed) > 0 {
		o.logger.Debug("dead code eliminated",
			zap.Int("removed", len(removed)),
			zap.Strings("node_ids", removed))
	}
	return result
}
