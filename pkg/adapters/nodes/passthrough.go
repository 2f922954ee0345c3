package nodes

import (
	"context"

	"github.com/flowforge-io/flowforge/pkg/domain"
)

// Passthrough executes input and output nodes: it forwards its inputs
// unchanged. Input nodes receive the execution's input data; output nodes
// collect their dependencies' outputs.
type Passthrough struct{}

// NewPassthrough creates a passthrough executor.
func NewPassthrough() *Passthrough {
	return &Passthrough{}
}

// Execute returns the node's inputs as its output.
func (p *Passthrough) Execute(ctx context.Context, node domain.Node, inputs map[string]interface{}, nodeCtx domain.NodeContext) (*domain.NodeOutput, error) {
	data := make(map[string]interface{}, len(inputs))
	for k, v := range inputs {
		data[k] = v
	}
	return &domain.NodeOutput{Data: data}, nil
}
