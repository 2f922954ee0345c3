package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flowforge-io/flowforge/internal/engine/compiler"
	"github.com/flowforge-io/flowforge/internal/engine/execution"
	"github.com/flowforge-io/flowforge/internal/engine/executor"
	"github.com/flowforge-io/flowforge/internal/engine/optimizer"
	"github.com/flowforge-io/flowforge/internal/engine/resources"
	"github.com/flowforge-io/flowforge/internal/engine/validator"
	"github.com/flowforge-io/flowforge/pkg/adapters/events/memory"
	"github.com/flowforge-io/flowforge/pkg/adapters/metrics/noop"
	"github.com/flowforge-io/flowforge/pkg/domain"
)

type echoNodes struct{}

func (echoNodes) Execute(ctx context.Context, node domain.Node, inputs map[string]interface{}, nodeCtx domain.NodeContext) (*domain.NodeOutput, error) {
	return &domain.NodeOutput{Data: map[string]interface{}{"node": node.ID}}, nil
}

func newManager(t *testing.T) *Manager {
	t.Helper()
	logger := zap.NewNop()
	metrics := noop.NewCollector()
	rm := resources.NewManager(resources.DefaultLimits(), logger)
	bus := memory.NewBus(logger)
	t.Cleanup(func() { _ = bus.Close() })
	store := memory.NewStore()

	exec := executor.New(
		execution.NewContextManager(logger),
		rm, bus, store, echoNodes{}, metrics, logger,
	)
	return NewManager(
		validator.New(),
		compiler.New(),
		optimizer.New(rm, metrics, logger),
		exec,
		store,
		logger,
	)
}

func testGraph() *domain.Graph {
	return &domain.Graph{
		Nodes: []domain.GraphNode{
			{ID: "in", Type: domain.NodeTypeInput},
			{ID: "model", Type: domain.NodeTypeLLM},
			{ID: "out", Type: domain.NodeTypeOutput},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "in", Target: "model"},
			{ID: "e2", Source: "model", Target: "out"},
		},
	}
}

func TestCompileGraphRejectsInvalid(t *testing.T) {
	m := newManager(t)

	_, err := m.CompileGraph(&domain.Graph{
		Nodes: []domain.GraphNode{{ID: "only", Type: domain.NodeTypeLLM}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestCompileGraphProducesPlan(t *testing.T) {
	m := newManager(t)

	compiled, err := m.CompileGraph(testGraph())
	require.NoError(t, err)
	assert.True(t, compiled.IsValid)
	assert.Equal(t, [][]string{{"in"}, {"model"}, {"out"}}, compiled.ExecutionPlan)
}

func TestOptimizeGraphReturnsAllPasses(t *testing.T) {
	m := newManager(t)

	compiled, results, err := m.OptimizeGraph(testGraph(), nil)
	require.NoError(t, err)
	require.NotNil(t, compiled)
	assert.Len(t, results, 7)

	history := m.OptimizationHistory()
	require.Len(t, history, 1)
	assert.Equal(t, 3, history[0].OriginalNodeCount)
}

func TestExecuteGraphEndToEnd(t *testing.T) {
	m := newManager(t)

	result, err := m.ExecuteGraph(context.Background(), SubmitRequest{
		Graph:  testGraph(),
		Inputs: map[string]interface{}{"prompt": "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionStatusCompleted, result.Status)

	status, err := m.GetStatus(result.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionStatusCompleted, status.Status)

	events, err := m.GetEvents(context.Background(), result.ExecutionID, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, events)
	assert.Equal(t, domain.EventTypeExecutionStarted, events[0].Type)
}

func TestLifecycleErrorsForUnknownExecution(t *testing.T) {
	m := newManager(t)

	_, err := m.GetStatus("missing")
	assert.Error(t, err)
	_, err = m.GetResult("missing")
	assert.Error(t, err)
	assert.Error(t, m.PauseExecution("missing"))
	assert.Error(t, m.ResumeExecution("missing"))
	assert.Error(t, m.CancelExecution("missing"))
	assert.Nil(t, m.GetPauseInfo("missing"))
}
