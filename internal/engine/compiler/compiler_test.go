package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge-io/flowforge/pkg/domain"
)

func TestCompile_LinearGraph(t *testing.T) {
	g := &domain.Graph{
		Nodes: []domain.GraphNode{
			{ID: "input", Type: domain.NodeTypeInput},
			{ID: "llm", Type: domain.NodeTypeLLM},
			{ID: "output", Type: domain.NodeTypeOutput},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "input", Target: "llm"},
			{ID: "e2", Source: "llm", Target: "output"},
		},
	}

	compiled := New().Compile(g)

	require.True(t, compiled.IsValid)
	assert.Equal(t, [][]string{{"input"}, {"llm"}, {"output"}}, compiled.ExecutionPlan)
	assert.Empty(t, compiled.ParallelGroups)
}

func TestCompile_DiamondGraph(t *testing.T) {
	g := &domain.Graph{
		Nodes: []domain.GraphNode{
			{ID: "in", Type: domain.NodeTypeInput},
			{ID: "left", Type: domain.NodeTypeLLM},
			{ID: "right", Type: domain.NodeTypeRetrieval},
			{ID: "out", Type: domain.NodeTypeOutput},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "in", Target: "left"},
			{ID: "e2", Source: "in", Target: "right"},
			{ID: "e3", Source: "left", Target: "out"},
			{ID: "e4", Source: "right", Target: "out"},
		},
	}

	compiled := New().Compile(g)

	require.True(t, compiled.IsValid)
	require.Len(t, compiled.ExecutionPlan, 3)
	assert.Equal(t, []string{"left", "right"}, compiled.ExecutionPlan[1])
	require.Len(t, compiled.ParallelGroups, 1)
	assert.Equal(t, []string{"left", "right"}, compiled.ParallelGroups[0])
}

// Every node's level must be strictly greater than the level of each of
// its dependencies.
func TestCompile_TopologicalSoundness(t *testing.T) {
	g := &domain.Graph{
		Nodes: []domain.GraphNode{
			{ID: "in", Type: domain.NodeTypeInput},
			{ID: "a", Type: domain.NodeTypeTool},
			{ID: "b", Type: domain.NodeTypeTool},
			{ID: "c", Type: domain.NodeTypeLLM},
			{ID: "out", Type: domain.NodeTypeOutput},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "in", Target: "a"},
			{ID: "e2", Source: "in", Target: "b"},
			{ID: "e3", Source: "a", Target: "c"},
			{ID: "e4", Source: "b", Target: "c"},
			{ID: "e5", Source: "c", Target: "out"},
		},
	}

	compiled := New().Compile(g)
	require.True(t, compiled.IsValid)

	levels := make(map[string]int)
	for i, level := range compiled.ExecutionPlan {
		for _, id := range level {
			levels[id] = i
		}
	}
	for _, node := range compiled.Nodes {
		assert.Equal(t, levels[node.ID], node.ExecutionOrder)
		for _, dep := range node.Dependencies {
			assert.Greater(t, levels[node.ID], levels[dep],
				"node %s must run after dependency %s", node.ID, dep)
		}
	}
}

func TestCompile_CycleFails(t *testing.T) {
	g := &domain.Graph{
		Nodes: []domain.GraphNode{
			{ID: "a", Type: domain.NodeTypeTool},
			{ID: "b", Type: domain.NodeTypeTool},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "a", Target: "b"},
			{ID: "e2", Source: "b", Target: "a"},
		},
	}

	compiled := New().Compile(g)

	assert.False(t, compiled.IsValid)
	require.NotEmpty(t, compiled.Errors)
	assert.Contains(t, compiled.Errors[0], "cycle")
	assert.Nil(t, compiled.ExecutionPlan)
}

func TestCompile_DanglingEdgeFails(t *testing.T) {
	g := &domain.Graph{
		Nodes: []domain.GraphNode{
			{ID: "in", Type: domain.NodeTypeInput},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "in", Target: "missing"},
		},
	}

	compiled := New().Compile(g)

	assert.False(t, compiled.IsValid)
	assert.Contains(t, compiled.Errors[0], "does not exist")
}

func TestCompile_ConfigCarriedFromNodeData(t *testing.T) {
	g := &domain.Graph{
		Nodes: []domain.GraphNode{
			{ID: "in", Type: domain.NodeTypeInput, Data: map[string]interface{}{"name": "query"}},
		},
	}

	compiled := New().Compile(g)

	require.True(t, compiled.IsValid)
	require.Len(t, compiled.Nodes, 1)
	assert.Equal(t, "query", compiled.Nodes[0].Config["name"])
}
