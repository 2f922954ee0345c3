package execution

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flowforge-io/flowforge/pkg/domain"
)

// validTransitions encodes the context state machine. Only the executor
// transitions status.
var validTransitions = map[domain.ExecutionStatus][]domain.ExecutionStatus{
	domain.ExecutionStatusReady: {
		domain.ExecutionStatusRunning,
		domain.ExecutionStatusFailed,
		domain.ExecutionStatusCancelled,
	},
	domain.ExecutionStatusRunning: {
		domain.ExecutionStatusPaused,
		domain.ExecutionStatusCompleted,
		domain.ExecutionStatusFailed,
		domain.ExecutionStatusCancelled,
	},
	domain.ExecutionStatusPaused: {
		domain.ExecutionStatusRunning,
		domain.ExecutionStatusFailed,
		domain.ExecutionStatusCancelled,
	},
}

// Metrics is a snapshot of cumulative context-manager counters.
type Metrics struct {
	ContextsCreated      int64         `json:"contexts_created"`
	ContextsCompleted    int64         `json:"contexts_completed"`
	ContextsFailed       int64         `json:"contexts_failed"`
	AverageExecutionTime time.Duration `json:"average_execution_time"`
}

// ContextManager tracks active execution contexts and retains retired ones
// as history. Safe for concurrent use by multiple executions.
type ContextManager struct {
	logger *zap.Logger

	mu      sync.RWMutex
	active  map[string]*domain.ExecutionContext
	history map[string]*domain.ExecutionContext

	created       int64
	completed     int64
	failed        int64
	totalDuration time.Duration
}

// NewContextManager creates an empty context manager.
func NewContextManager(logger *zap.Logger) *ContextManager {
	return &ContextManager{
		logger:  logger,
		active:  make(map[string]*domain.ExecutionContext),
		history: make(map[string]*domain.ExecutionContext),
	}
}

// CreateContext constructs a context in ready state and adds it to the
// active set. The caller must retire it with RemoveContext on every exit
// path.
func (m *ContextManager) CreateContext(workspaceID, userID, agentID string) *domain.ExecutionContext {
	ctx := &domain.ExecutionContext{
		ExecutionID: uuid.New().String(),
		WorkspaceID: workspaceID,
		UserID:      userID,
		AgentID:     agentID,
		Status:      domain.ExecutionStatusReady,
		CreatedAt:   time.Now(),
	}

	m.mu.Lock()
	m.active[ctx.ExecutionID] = ctx
	m.created++
	m.mu.Unlock()

	m.logger.Debug("execution context created",
		zap.String("execution_id", ctx.ExecutionID),
		zap.String("workspace_id", workspaceID))
	return ctx
}

// GetContext returns the context for an execution, active or historical,
// or nil when the id is unknown.
func (m *ContextManager) GetContext(executionID string) *domain.ExecutionContext {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if ctx, ok := m.active[executionID]; ok {
		copied := *ctx
		return &copied
	}
	if ctx, ok := m.history[executionID]; ok {
		copied := *ctx
		return &copied
	}
	return nil
}

// UpdateContextStatus applies a state-machine transition to an active
// context. Invalid transitions are rejected.
func (m *ContextManager) UpdateContextStatus(executionID string, status domain.ExecutionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, ok := m.active[executionID]
	if !ok {
		return fmt.Errorf("execution context not found: %s", executionID)
	}

	allowed := false
	for _, next := range validTransitions[ctx.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("invalid status transition %s -> %s for execution %s",
			ctx.Status, status, executionID)
	}

	ctx.Status = status
	return nil
}

// RemoveContext retires a context from the active set. It remains
// retrievable by id as history.
func (m *ContextManager) RemoveContext(executionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, ok := m.active[executionID]
	if !ok {
		return
	}
	delete(m.active, executionID)
	m.history[executionID] = ctx

	switch ctx.Status {
	case domain.ExecutionStatusCompleted:
		m.completed++
		m.totalDuration += time.Since(ctx.CreatedAt)
	case domain.ExecutionStatusFailed, domain.ExecutionStatusCancelled:
		m.failed++
	}

	m.logger.Debug("execution context retired",
		zap.String("execution_id", executionID),
		zap.String("status", string(ctx.Status)))
}

// ActiveCount returns the number of active contexts.
func (m *ContextManager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}

// GetMetrics returns a snapshot of the cumulative counters.
func (m *ContextManager) GetMetrics() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	metrics := Metrics{
		ContextsCreated:   m.created,
		ContextsCompleted: m.completed,
		ContextsFailed:    m.failed,
	}
	if m.completed > 0 {
		metrics.AverageExecutionTime = m.totalDuration / time.Duration(m.completed)
	}
	return metrics
}
