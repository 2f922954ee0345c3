package validator

import (
	"fmt"

	"github.com/flowforge-io/flowforge/pkg/domain"
)

// Validator validates graph structures before compilation.
type Validator struct{}

// New creates a new graph validator.
func New() *Validator {
	return &Validator{}
}

// dfs markers for cycle detection. A back-edge to a node still on the DFS
// stack (marked visiting) is a cycle.
type visitState int

const (
	unvisited visitState = iota
	visiting
	visited
)

// Validate checks a raw graph for structural violations and returns all
// findings in one result.
func (v *Validator) Validate(graph *domain.Graph) domain.ValidationResult {
	result := domain.ValidationResult{IsValid: true, Errors: []string{}}
	if graph == nil {
		result.IsValid = false
		result.Errors = append(result.Errors, "graph is nil")
		return result
	}

	nodeIDs := make(map[string]domain.NodeType, len(graph.Nodes))
	var inputs, outputs int
	for _, n := range graph.Nodes {
		if n.ID == "" {
			result.Errors = append(result.Errors, "node ID is required")
			continue
		}
		if _, dup := nodeIDs[n.ID]; dup {
			result.Errors = append(result.Errors, fmt.Sprintf("duplicate node ID: %s", n.ID))
			continue
		}
		nodeIDs[n.ID] = n.Type
		switch n.Type {
		case domain.NodeTypeInput:
			inputs++
		case domain.NodeTypeOutput:
			outputs++
		}
	}

	if inputs == 0 {
		result.Errors = append(result.Errors, "graph must contain at least one input node")
	}
	if outputs == 0 {
		result.Errors = append(result.Errors, "graph must contain at least one output node")
	}

	// Edge referential integrity.
	adjacency := make(map[string][]string)
	for _, e := range graph.Edges {
		valid := true
		if _, ok := nodeIDs[e.Source]; !ok {
			result.Errors = append(result.Errors,
				fmt.Sprintf("edge %s references a node that does not exist: %s", e.ID, e.Source))
			valid = false
		}
		if _, ok := nodeIDs[e.Target]; !ok {
			result.Errors = append(result.Errors,
				fmt.Sprintf("edge %s references a node that does not exist: %s", e.ID, e.Target))
			valid = false
		}
		if valid {
			adjacency[e.Source] = append(adjacency[e.Source], e.Target)
		}
	}

	if cycle := findCycle(nodeIDs, adjacency); cycle != "" {
		result.Errors = append(result.Errors,
			fmt.Sprintf("graph contains a cycle through node %s", cycle))
	}

	result.IsValid = len(result.Errors) == 0
	return result
}

// findCycle runs a depth-first traversal over the adjacency map and
// returns the id of a node on a cycle, or "" when the graph is acyclic.
func findCycle(nodeIDs map[string]domain.NodeType, adjacency map[string][]string) string {
	states := make(map[string]visitState, len(nodeIDs))

	var visit func(id string) string
	visit = func(id string) string {
		states[id] = visiting
		for _, next := range adjacency[id] {
			switch states[next] {
			case visiting:
				return next
			case unvisited:
				if hit := visit(next); hit != "" {
					return hit
				}
			}
		}
		states[id] = visited
		return ""
	}

	for id := range nodeIDs {
		if states[id] == unvisited {
			if hit := visit(id); hit != "" {
				return hit
			}
		}
	}
	return ""
}
