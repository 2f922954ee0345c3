package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/flowforge-io/flowforge/pkg/domain"
)

// Transform reshapes data between nodes according to the node's config:
//
//	operation: "merge" (default) flattens all dependency outputs into one map
//	operation: "pick" keeps only the keys listed under "fields"
//	operation: "rename" renames keys per the "mapping" object
type Transform struct{}

// NewTransform creates a transform executor.
func NewTransform() *Transform {
	return &Transform{}
}

// Execute applies the configured operation to the node's inputs.
func (t *Transform) Execute(ctx context.Context, node domain.Node, inputs map[string]interface{}, nodeCtx domain.NodeContext) (*domain.NodeOutput, error) {
	merged := flatten(inputs)

	operation := "merge"
	if op, ok := node.Config["operation"].(string); ok && op != "" {
		operation = strings.ToLower(op)
	}

	switch operation {
	case "merge":
		return &domain.NodeOutput{Data: merged}, nil

	case "pick":
		fields, ok := node.Config["fields"].([]interface{})
		if !ok {
			return nil, fmt.Errorf("transform node %s: pick requires a fields list", node.ID)
		}
		picked := make(map[string]interface{}, len(fields))
		for _, f := range fields {
			name, ok := f.(string)
			if !ok {
				continue
			}
			if v, present := merged[name]; present {
				picked[name] = v
			}
		}
		return &domain.NodeOutput{Data: picked}, nil

	case "rename":
		mapping, ok := node.Config["mapping"].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("transform node %s: rename requires a mapping object", node.ID)
		}
		renamed := make(map[string]interface{}, len(merged))
		for k, v := range merged {
			renamed[k] = v
		}
		for from, to := range mapping {
			target, ok := to.(string)
			if !ok {
				continue
			}
			if v, present := renamed[from]; present {
				delete(renamed, from)
				renamed[target] = v
			}
		}
		return &domain.NodeOutput{Data: renamed}, nil

	default:
		return nil, fmt.Errorf("transform node %s: unsupported operation: %s", node.ID, operation)
	}
}

// flatten merges dependency outputs into a single map. Nested maps from
// upstream nodes are spread one level; scalar inputs keep their key.
func flatten(inputs map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(inputs))
	for key, value := range inputs {
		if nested, ok := value.(map[string]interface{}); ok {
			for k, v := range nested {
				merged[k] = v
			}
			continue
		}
		merged[key] = value
	}
	return merged
}
