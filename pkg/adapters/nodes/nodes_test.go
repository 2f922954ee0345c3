package nodes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flowforge-io/flowforge/pkg/domain"
	"github.com/flowforge-io/flowforge/pkg/ports"
)

type fakeExecutor struct {
	called bool
}

func (f *fakeExecutor) Execute(ctx context.Context, node domain.Node, inputs map[string]interface{}, nodeCtx domain.NodeContext) (*domain.NodeOutput, error) {
	f.called = true
	return &domain.NodeOutput{Data: map[string]interface{}{"from": string(node.Type)}}, nil
}

func TestRegistryDispatchesByType(t *testing.T) {
	registry := NewRegistry(zap.NewNop())
	llm := &fakeExecutor{}
	registry.Register(domain.NodeTypeLLM, llm)

	out, err := registry.Execute(context.Background(), domain.Node{ID: "n1", Type: domain.NodeTypeLLM}, nil, domain.NodeContext{})
	require.NoError(t, err)
	assert.True(t, llm.called)
	assert.Equal(t, "llm", out.Data["from"])
}

func TestRegistryRejectsUnknownType(t *testing.T) {
	registry := NewRegistry(zap.NewNop())

	_, err := registry.Execute(context.Background(), domain.Node{ID: "n1", Type: domain.NodeTypeTool}, nil, domain.NodeContext{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no executor registered")
}

func TestRegistryImplementsNodeExecutor(t *testing.T) {
	var _ ports.NodeExecutor = NewRegistry(zap.NewNop())
	var _ ports.NodeExecutor = NewPassthrough()
	var _ ports.NodeExecutor = NewTransform()
}

func TestPassthroughForwardsInputs(t *testing.T) {
	out, err := NewPassthrough().Execute(context.Background(),
		domain.Node{ID: "in", Type: domain.NodeTypeInput},
		map[string]interface{}{"prompt": "hello"},
		domain.NodeContext{})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"prompt": "hello"}, out.Data)
}

func TestTransformMergeFlattensDependencyOutputs(t *testing.T) {
	inputs := map[string]interface{}{
		"upstream-a": map[string]interface{}{"x": 1},
		"upstream-b": map[string]interface{}{"y": 2},
	}
	out, err := NewTransform().Execute(context.Background(),
		domain.Node{ID: "t", Type: domain.NodeTypeTransform},
		inputs, domain.NodeContext{})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"x": 1, "y": 2}, out.Data)
}

func TestTransformPick(t *testing.T) {
	node := domain.Node{
		ID:   "t",
		Type: domain.NodeTypeTransform,
		Config: map[string]interface{}{
			"operation": "pick",
			"fields":    []interface{}{"keep"},
		},
	}
	out, err := NewTransform().Execute(context.Background(), node,
		map[string]interface{}{"keep": "yes", "drop": "no"}, domain.NodeContext{})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"keep": "yes"}, out.Data)
}

func TestTransformRename(t *testing.T) {
	node := domain.Node{
		ID:   "t",
		Type: domain.NodeTypeTransform,
		Config: map[string]interface{}{
			"operation": "rename",
			"mapping":   map[string]interface{}{"old": "new"},
		},
	}
	out, err := NewTransform().Execute(context.Background(), node,
		map[string]interface{}{"old": 42}, domain.NodeContext{})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"new": 42}, out.Data)
}

func TestTransformRejectsUnknownOperation(t *testing.T) {
	node := domain.Node{
		ID:     "t",
		Type:   domain.NodeTypeTransform,
		Config: map[string]interface{}{"operation": "explode"},
	}
	_, err := NewTransform().Execute(context.Background(), node, nil, domain.NodeContext{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported operation")
}

func TestExtractQueryPrefersExplicitKey(t *testing.T) {
	assert.Equal(t, "fish", extractQuery(map[string]interface{}{
		"dep": map[string]interface{}{"query": "fish", "prompt": "ignored"},
	}))
	assert.Equal(t, "chips", extractQuery(map[string]interface{}{
		"prompt": "chips",
	}))
	assert.Equal(t, "", extractQuery(map[string]interface{}{"n": 3}))
}

func TestDocumentMatches(t *testing.T) {
	doc := map[string]interface{}{"title": "Gophers", "text": "Go concurrency patterns"}
	assert.True(t, documentMatches(doc, "concurrency"))
	assert.True(t, documentMatches(doc, "GOPHERS elsewhere"))
	assert.False(t, documentMatches(doc, "haskell"))
}
