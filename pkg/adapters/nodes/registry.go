package nodes

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/flowforge-io/flowforge/pkg/domain"
	"github.com/flowforge-io/flowforge/pkg/ports"
)

// Registry dispatches nodes to the executor registered for their type.
// It implements ports.NodeExecutor itself so the engine sees one executor.
type Registry struct {
	mu        sync.RWMutex
	executors map[domain.NodeType]ports.NodeExecutor
	logger    *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		executors: make(map[domain.NodeType]ports.NodeExecutor),
		logger:    logger,
	}
}

// Register binds an executor to a node type, replacing any previous binding.
func (r *Registry) Register(nodeType domain.NodeType, executor ports.NodeExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[nodeType] = executor
	r.logger.Debug("node executor registered", zap.String("node_type", string(nodeType)))
}

// Execute dispatches the node to its type's executor.
func (r *Registry) Execute(ctx context.Context, node domain.Node, inputs map[string]interface{}, nodeCtx domain.NodeContext) (*domain.NodeOutput, error) {
	r.mu.RLock()
	executor, ok := r.executors[node.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no executor registered for node type: %s", node.Type)
	}
	return executor.Execute(ctx, node, inputs, nodeCtx)
}
