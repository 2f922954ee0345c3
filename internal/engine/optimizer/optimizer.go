package optimizer

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/flowforge-io/flowforge/internal/engine/resources"
	"github.com/flowforge-io/flowforge/pkg/domain"
	"github.com/flowforge-io/flowforge/pkg/ports"
)

// Optimizer runs transformation passes over compiled graphs.
type Optimizer struct {
	resources *resources.Manager
	metrics   ports.MetricsCollector
	logger    *zap.Logger

	mu      sync.Mutex
	history []HistoryEntry
}

// HistoryEntry records one Optimize invocation for later audit.
type HistoryEntry struct {
	Timestamp         time.Time                 `json:"timestamp"`
	OriginalNodeCount int                       `json:"original_node_count"`
	FinalNodeCount    int                       `json:"final_node_count"`
	Passes            []domain.OptimizationType `json:"passes"`
}

// New creates an optimizer backed by the given resource manager.
func New(rm *resources.Manager, metrics ports.MetricsCollector, logger *zap.Logger) *Optimizer {
	return &Optimizer{
		resources: rm,
		metrics:   metrics,
		logger:    logger,
	}
}

// Optimize runs all seven passes against the original compiled graph and
// returns their results. FinalNodeCount in the history entry is the
// smallest node count any pass produced.
func (o *Optimizer) Optimize(compiled *domain.CompiledGraph, config *domain.ExecutionConfig) []domain.OptimizationResult {
	nodes, plan, groups := compiled.Nodes, compiled.ExecutionPlan, compiled.ParallelGroups

	results := []domain.OptimizationResult{
		o.EliminateDeadCode(nodes, plan, groups),
		o.MergeNodes(nodes, plan, groups),
		o.OptimizeParallelExecution(nodes, plan, groups),
		o.OptimizeResources(nodes, plan, groups, config),
		o.OptimizeCost(nodes, plan, groups),
		o.OptimizeCaching(nodes, plan, groups),
		o.OptimizeEdges(nodes, plan, groups),
	}

	entry := HistoryEntry{
		Timestamp:         time.Now(),
		OriginalNodeCount: len(nodes),
		FinalNodeCount:    len(nodes),
	}
	for _, r := range results {
		entry.Passes = append(entry.Passes, r.Type)
		if r.Success && len(r.Nodes) < entry.FinalNodeCount {
			entry.FinalNodeCount = len(r.Nodes)
		}
		o.metrics.RecordOptimizationPass(string(r.Type))
	}

	o.mu.Lock()
	o.history = append(o.history, entry)
	o.mu.Unlock()

	o.logger.Info("graph optimized",
		zap.Int("original_nodes", entry.OriginalNodeCount),
		zap.Int("final_nodes", entry.FinalNodeCount),
		zap.Int("passes", len(results)))
	return results
}

// History returns a copy of the recorded optimization history.
func (o *Optimizer) History() []HistoryEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]HistoryEntry, len(o.history))
	copy(out, o.history)
	return out
}

// cloneNodes deep-copies a node list so passes never mutate the original.
func cloneNodes(nodes []domain.Node) []domain.Node {
	out := make([]domain.Node, len(nodes))
	for i, n := range nodes {
		out[i] = n
		out[i].Dependencies = append([]string(nil), n.Dependencies...)
		if n.Config != nil {
			cfg := make(map[string]interface{}, len(n.Config))
			for k, v := range n.Config {
				cfg[k] = v
			}
			out[i].Config = cfg
		}
		if n.Metadata != nil {
			md := make(map[string]interface{}, len(n.Metadata))
			for k, v := range n.Metadata {
				md[k] = v
			}
			out[i].Metadata = md
		}
	}
	return out
}

// buildPlan re-levels a node list with Kahn's algorithm over the nodes'
// dependency sets (ignoring dependencies on nodes absent from the list)
// and rewrites each node's ExecutionOrder in place.
func buildPlan(nodes []domain.Node) (plan [][]string, groups [][]string) {
	present := make(map[string]int, len(nodes))
	for i, n := range nodes {
		present[n.ID] = i
	}

	pending := make(map[string]struct{}, len(nodes))
	for id := range present {
		pending[id] = struct{}{}
	}
	scheduled := make(map[string]struct{}, len(nodes))

	for level := 0; len(pending) > 0; level++ {
		var ready []string
		for id := range pending {
			satisfied := true
			for _, dep := range nodes[present[id]].Dependencies {
				if _, in := present[dep]; !in {
					continue
				}
				if _, done := scheduled[dep]; !done {
					satisfied = false
					break
				}
			}
			if satisfied {
				ready = append(ready, id)
			}
		}
		if len(ready) == 0 {
			// Unreachable for graphs produced by the compiler.
			break
		}
		sort.Strings(ready)
		plan = append(plan, ready)
		if len(ready) > 1 {
			groups = append(groups, ready)
		}
		for _, id := range ready {
			nodes[present[id]].ExecutionOrder = level
			scheduled[id] = struct{}{}
			delete(pending, id)
		}
	}
	return plan, groups
}
