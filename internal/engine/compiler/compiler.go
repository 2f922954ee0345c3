package compiler

import (
	"fmt"
	"sort"

	"github.com/flowforge-io/flowforge/pkg/domain"
)

// Compiler builds compiled execution plans from raw graphs.
type Compiler struct{}

// New creates a new DAG compiler.
func New() *Compiler {
	return &Compiler{}
}

// Compile levels the graph with Kahn's algorithm. Nodes whose dependencies
// are all scheduled get the next execution order; if a full pass schedules
// nothing while nodes remain pending, the graph is cyclic and the compiled
// graph is marked invalid.
func (c *Compiler) Compile(graph *domain.Graph) *domain.CompiledGraph {
	compiled := &domain.CompiledGraph{
		Nodes:          []domain.Node{},
		ExecutionPlan:  [][]string{},
		ParallelGroups: [][]string{},
		IsValid:        true,
		Errors:         []string{},
	}
	if graph == nil {
		compiled.IsValid = false
		compiled.Errors = append(compiled.Errors, "graph is nil")
		return compiled
	}

	// Dependency map: target node -> set of source node ids.
	deps := make(map[string]map[string]struct{}, len(graph.Nodes))
	byID := make(map[string]domain.GraphNode, len(graph.Nodes))
	for _, n := range graph.Nodes {
		deps[n.ID] = make(map[string]struct{})
		byID[n.ID] = n
	}
	for _, e := range graph.Edges {
		if _, ok := deps[e.Target]; !ok {
			compiled.IsValid = false
			compiled.Errors = append(compiled.Errors,
				fmt.Sprintf("edge %s references a node that does not exist: %s", e.ID, e.Target))
			continue
		}
		if _, ok := deps[e.Source]; !ok {
			compiled.IsValid = false
			compiled.Errors = append(compiled.Errors,
				fmt.Sprintf("edge %s references a node that does not exist: %s", e.ID, e.Source))
			continue
		}
		deps[e.Target][e.Source] = struct{}{}
	}
	if !compiled.IsValid {
		return compiled
	}

	pending := make(map[string]struct{}, len(graph.Nodes))
	for id := range deps {
		pending[id] = struct{}{}
	}

	scheduled := make(map[string]struct{}, len(graph.Nodes))
	orders := make(map[string]int, len(graph.Nodes))

	for level := 0; len(pending) > 0; level++ {
		var ready []string
		for id := range pending {
			satisfied := true
			for dep := range deps[id] {
				if _, ok := scheduled[dep]; !ok {
					satisfied = false
					break
				}
			}
			if satisfied {
				ready = append(ready, id)
			}
		}

		if len(ready) == 0 {
			compiled.IsValid = false
			compiled.Errors = append(compiled.Errors,
				fmt.Sprintf("cycle detected: %d node(s) cannot be scheduled", len(pending)))
			compiled.ExecutionPlan = nil
			compiled.ParallelGroups = nil
			compiled.Nodes = nil
			return compiled
		}

		sort.Strings(ready)
		compiled.ExecutionPlan = append(compiled.ExecutionPlan, ready)
		if len(ready) > 1 {
			compiled.ParallelGroups = append(compiled.ParallelGroups, ready)
		}
		for _, id := range ready {
			scheduled[id] = struct{}{}
			orders[id] = level
			delete(pending, id)
		}
	}

	// Materialize compiled nodes in plan order.
	for _, level := range compiled.ExecutionPlan {
		for _, id := range level {
			raw := byID[id]
			node := domain.Node{
				ID:             id,
				Type:           raw.Type,
				Config:         raw.Data,
				Dependencies:   sortedKeys(deps[id]),
				ExecutionOrder: orders[id],
			}
			if node.Config == nil {
				node.Config = map[string]interface{}{}
			}
			compiled.Nodes = append(compiled.Nodes, node)
		}
	}

	return compiled
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
