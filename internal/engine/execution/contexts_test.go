package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flowforge-io/flowforge/pkg/domain"
)

func TestCreateContext_StartsReady(t *testing.T) {
	m := NewContextManager(zap.NewNop())

	ctx := m.CreateContext("ws-1", "user-1", "agent-1")

	assert.NotEmpty(t, ctx.ExecutionID)
	assert.Equal(t, domain.ExecutionStatusReady, ctx.Status)
	assert.Equal(t, 1, m.ActiveCount())
}

func TestUpdateContextStatus_ValidTransitions(t *testing.T) {
	m := NewContextManager(zap.NewNop())
	ctx := m.CreateContext("ws-1", "user-1", "agent-1")
	id := ctx.ExecutionID

	require.NoError(t, m.UpdateContextStatus(id, domain.ExecutionStatusRunning))
	require.NoError(t, m.UpdateContextStatus(id, domain.ExecutionStatusPaused))
	require.NoError(t, m.UpdateContextStatus(id, domain.ExecutionStatusRunning))
	require.NoError(t, m.UpdateContextStatus(id, domain.ExecutionStatusCompleted))

	assert.Equal(t, domain.ExecutionStatusCompleted, m.GetContext(id).Status)
}

func TestUpdateContextStatus_InvalidTransition(t *testing.T) {
	m := NewContextManager(zap.NewNop())
	ctx := m.CreateContext("ws-1", "user-1", "agent-1")

	// ready -> paused skips running.
	err := m.UpdateContextStatus(ctx.ExecutionID, domain.ExecutionStatusPaused)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid status transition")
	assert.Equal(t, domain.ExecutionStatusReady, m.GetContext(ctx.ExecutionID).Status)
}

func TestUpdateContextStatus_UnknownExecution(t *testing.T) {
	m := NewContextManager(zap.NewNop())

	err := m.UpdateContextStatus("missing", domain.ExecutionStatusRunning)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRemoveContext_RetiredButRetrievable(t *testing.T) {
	m := NewContextManager(zap.NewNop())
	ctx := m.CreateContext("ws-1", "user-1", "agent-1")
	id := ctx.ExecutionID
	require.NoError(t, m.UpdateContextStatus(id, domain.ExecutionStatusRunning))
	require.NoError(t, m.UpdateContextStatus(id, domain.ExecutionStatusCompleted))

	m.RemoveContext(id)

	assert.Equal(t, 0, m.ActiveCount())
	got := m.GetContext(id)
	require.NotNil(t, got, "retired context must remain retrievable")
	assert.Equal(t, domain.ExecutionStatusCompleted, got.Status)
}

func TestGetMetrics(t *testing.T) {
	m := NewContextManager(zap.NewNop())

	ok := m.CreateContext("ws-1", "user-1", "agent-1")
	require.NoError(t, m.UpdateContextStatus(ok.ExecutionID, domain.ExecutionStatusRunning))
	require.NoError(t, m.UpdateContextStatus(ok.ExecutionID, domain.ExecutionStatusCompleted))
	m.RemoveContext(ok.ExecutionID)

	bad := m.CreateContext("ws-1", "user-1", "agent-1")
	require.NoError(t, m.UpdateContextStatus(bad.ExecutionID, domain.ExecutionStatusRunning))
	require.NoError(t, m.UpdateContextStatus(bad.ExecutionID, domain.ExecutionStatusFailed))
	m.RemoveContext(bad.ExecutionID)

	metrics := m.GetMetrics()
	assert.Equal(t, int64(2), metrics.ContextsCreated)
	assert.Equal(t, int64(1), metrics.ContextsCompleted)
	assert.Equal(t, int64(1), metrics.ContextsFailed)
	assert.GreaterOrEqual(t, metrics.AverageExecutionTime.Nanoseconds(), int64(0))
}
