package optimizer

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/flowforge-io/flowforge/pkg/domain"
)

// mergeThreshold is the minimum compatibility score for two nodes to be
// merged into one synthetic node.
const mergeThreshold = 0.7

// MergeNodes merges pairs of compatible nodes that share a type and an
// execution level. Input/output nodes and already-merged synthetic nodes
// are never candidates, which keeps the pass idempotent.
func (o *Optimizer) MergeNodes(nodes []domain.Node, plan, groups [][]string) domain.OptimizationResult {
	result := domain.OptimizationResult{
		Type:               domain.OptimizationMerging,
		Success:            true,
		MetricsImprovement: map[string]float64{},
		Metadata:           map[string]interface{}{},
	}

	working := cloneNodes(nodes)
	merged := make(map[string]string) // original id -> synthetic id
	consumed := make(map[int]struct{})
	var out []domain.Node
	var mergedPairs [][]string

	for i := 0; i < len(working); i++ {
		if _, gone := consumed[i]; gone {
			continue
		}
		a := working[i]
		if !mergeable(a) {
			out = append(out, a)
			continue
		}

		paired := false
		for j := i + 1; j < len(working); j++ {
			if _, gone := consumed[j]; gone {
				continue
			}
			b := working[j]
			if !mergeable(b) {
				continue
			}
			if compatibilityScore(a, b) < mergeThreshold {
				continue
			}

			synthetic := mergeNodePair(a, b)
			merged[a.ID] = synthetic.ID
			merged[b.ID] = synthetic.ID
			consumed[j] = struct{}{}
			out = append(out, synthetic)
			mergedPairs = append(mergedPairs, []string{a.ID, b.ID})
			paired = true
			break
		}
		if !paired {
			out = append(out, a)
		}
	}

	// Rewrite dependencies that referenced merged nodes.
	for i := range out {
		seen := make(map[string]struct{}, len(out[i].Dependencies))
		deps := make([]string, 0, len(out[i].Dependencies))
		for _, dep := range out[i].Dependencies {
			if to, ok := merged[dep]; ok {
				dep = to
			}
			if dep == out[i].ID {
				continue
			}
			if _, dup := seen[dep]; dup {
				continue
			}
			seen[dep] = struct{}{}
			deps = append(deps, dep)
		}
		out[i].Dependencies = deps
	}

	result.Nodes = out
	result.ExecutionPlan, result.ParallelGroups = buildPlan(out)
	result.MetricsImprovement["node_count_reduction"] = float64(len(mergedPairs))
	result.Metadata["merged_pairs"] = mergedPairs

	if len(mergedPairs) > 0 {
		o.logger.Debug("nodes merged", zap.Int("pairs", len(mergedPairs)))
	}
	return result
}

func mergeable(n domain.Node) bool {
	if n.Type == domain.NodeTypeInput || n.Type == domain.NodeTypeOutput {
		return false
	}
	if n.Metadata != nil {
		if _, synthetic := n.Metadata["merged_from"]; synthetic {
			return false
		}
	}
	return true
}

// compatibilityScore is 0 on type or level mismatch, otherwise the
// structural similarity of the two configs in [0,1]. Two empty configs
// score 1.0.
func compatibilityScore(a, b domain.Node) float64 {
	if a.Type != b.Type || a.ExecutionOrder != b.ExecutionOrder {
		return 0
	}
	if len(a.Config) == 0 && len(b.Config) == 0 {
		return 1.0
	}

	union := make(map[string]struct{}, len(a.Config)+len(b.Config))
	for k := range a.Config {
		union[k] = struct{}{}
	}
	for k := range b.Config {
		union[k] = struct{}{}
	}

	var shared int
	for k := range union {
		av, aok := a.Config[k]
		bv, bok := b.Config[k]
		if aok && bok && fmt.Sprintf("%v", av) == fmt.Sprintf("%v", bv) {
			shared++
		}
	}
	return float64(shared) / float64(len(union))
}

func mergeNodePair(a, b domain.Node) domain.Node {
	cfg := make(map[string]interface{}, len(a.Config)+len(b.Config))
	for k, v := range b.Config {
		cfg[k] = v
	}
	for k, v := range a.Config {
		cfg[k] = v
	}

	depSet := make(map[string]struct{}, len(a.Dependencies)+len(b.Dependencies))
	var deps []string
	for _, dep := range append(append([]string{}, a.Dependencies...), b.Dependencies...) {
		if _, dup := depSet[dep]; dup {
			continue
		}
		depSet[dep] = struct{}{}
		deps = append(deps, dep)
	}

	return domain.Node{
		ID:             fmt.Sprintf("merged_%s_%s", a.ID, b.ID),
		Type:           a.Type,
		Config:         cfg,
		Dependencies:   deps,
		ExecutionOrder: a.ExecutionOrder,
		Metadata: map[string]interface{}{
			"merged_from": []string{a.ID, b.ID},
		},
	}
}
