package domain

// NodeType identifies the behavior of a graph node.
type NodeType string

const (
	NodeTypeInput     NodeType = "input"
	NodeTypeOutput    NodeType = "output"
	NodeTypeLLM       NodeType = "llm"
	NodeTypeRetrieval NodeType = "retrieval"
	NodeTypeTool      NodeType = "tool"
	NodeTypeTransform NodeType = "transform"
)

// Position is the editor placement of a node. The engine ignores it but
// preserves it so round-tripped graphs keep their layout.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GraphNode is a node as submitted by a client, before compilation.
type GraphNode struct {
	ID       string                 `json:"id"`
	Type     NodeType               `json:"type"`
	Data     map[string]interface{} `json:"data"`
	Position *Position              `json:"position,omitempty"`
}

// Edge is a directed connection between two nodes. Edges are consumed
// during compilation to build the dependency graph and are not retained
// in the compiled form.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Graph is the raw graph input schema.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []Edge      `json:"edges"`
}

// ValidationResult reports structural validation findings. Errors are
// advisory strings; expected structural violations are never raised as
// Go errors.
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}
