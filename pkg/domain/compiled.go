package domain

// Node is a compiled graph node. It is immutable once compiled; optimizer
// passes produce new node lists rather than mutating in place.
type Node struct {
	ID             string                 `json:"id"`
	Type           NodeType               `json:"type"`
	Config         map[string]interface{} `json:"config"`
	Dependencies   []string               `json:"dependencies"`
	ExecutionOrder int                    `json:"execution_order"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// CompiledGraph is the output of DAG compilation: the node list plus a
// leveled execution plan. Every node's ExecutionOrder equals the index of
// the level containing it, and every dependency of a node appears in a
// strictly earlier level.
type CompiledGraph struct {
	Nodes          []Node     `json:"nodes"`
	ExecutionPlan  [][]string `json:"execution_plan"`
	ParallelGroups [][]string `json:"parallel_groups"`
	IsValid        bool       `json:"is_valid"`
	Errors         []string   `json:"errors"`
}

// NodeByID returns the compiled node with the given id, or nil.
func (g *CompiledGraph) NodeByID(id string) *Node {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

// NodesByType returns all compiled nodes of the given type.
func (g *CompiledGraph) NodesByType(t NodeType) []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// OptimizationType identifies one of the optimizer's passes.
type OptimizationType string

const (
	OptimizationDeadCode  OptimizationType = "dead_code_elimination"
	OptimizationMerging   OptimizationType = "node_merging"
	OptimizationParallel  OptimizationType = "parallel_execution"
	OptimizationResources OptimizationType = "resource_optimization"
	OptimizationCost      OptimizationType = "cost_based_optimization"
	OptimizationCaching   OptimizationType = "caching_optimization"
	OptimizationEdges     OptimizationType = "edge_optimization"
)

// OptimizationResult is the outcome of a single optimizer pass. Each pass
// computes its result from the original compiled graph, independently of
// the other passes.
type OptimizationResult struct {
	Type               OptimizationType       `json:"optimization_type"`
	Success            bool                   `json:"success"`
	Nodes              []Node                 `json:"nodes"`
	ExecutionPlan      [][]string             `json:"execution_plan"`
	ParallelGroups     [][]string             `json:"parallel_groups"`
	MetricsImprovement map[string]float64     `json:"metrics_improvement"`
	Metadata           map[string]interface{} `json:"metadata,omitempty"`
}
