package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/flowforge-io/flowforge/internal/engine/compiler"
	"github.com/flowforge-io/flowforge/internal/engine/executor"
	"github.com/flowforge-io/flowforge/internal/engine/optimizer"
	"github.com/flowforge-io/flowforge/internal/engine/validator"
	"github.com/flowforge-io/flowforge/pkg/domain"
	"github.com/flowforge-io/flowforge/pkg/ports"
)

// Manager coordinates graph validation, compilation, optimization, and
// execution.
type Manager struct {
	validator *validator.Validator
	compiler  *compiler.Compiler
	optimizer *optimizer.Optimizer
	executor  *executor.Executor
	store     ports.EventStore
	logger    *zap.Logger
}

// SubmitRequest carries one graph submission through the pipeline.
type SubmitRequest struct {
	Graph       *domain.Graph          `json:"graph"`
	Inputs      map[string]interface{} `json:"inputs"`
	Config      domain.ExecutionConfig `json:"config"`
	Optimize    bool                   `json:"optimize"`
	WorkspaceID string                 `json:"workspace_id"`
	UserID      string                 `json:"user_id"`
	AgentID     string                 `json:"agent_id"`
}

// NewManager creates the pipeline coordinator.
func NewManager(
	v *validator.Validator,
	c *compiler.Compiler,
	o *optimizer.Optimizer,
	e *executor.Executor,
	store ports.EventStore,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		validator: v,
		compiler:  c,
		optimizer: o,
		executor:  e,
		store:     store,
		logger:    logger,
	}
}

// ValidateGraph checks a user-authored graph's structure.
func (m *Manager) ValidateGraph(graph *domain.Graph) domain.ValidationResult {
	return m.validator.Validate(graph)
}

// CompileGraph validates and compiles a graph into an execution plan.
func (m *Manager) CompileGraph(graph *domain.Graph) (*domain.CompiledGraph, error) {
	result := m.validator.Validate(graph)
	if !result.IsValid {
		return nil, fmt.Errorf("validation failed: %s", strings.Join(result.Errors, "; "))
	}

	compiled := m.compiler.Compile(graph)
	if !compiled.IsValid {
		return nil, fmt.Errorf("compilation failed: %s", strings.Join(compiled.Errors, "; "))
	}
	return compiled, nil
}

// OptimizeGraph compiles a graph and runs every optimization pass against
// the compiled form. Each pass is computed independently from the same
// original graph; the results are advisory.
func (m *Manager) OptimizeGraph(graph *domain.Graph, config *domain.ExecutionConfig) (*domain.CompiledGraph, []domain.OptimizationResult, error) {
	compiled, err := m.CompileGraph(graph)
	if err != nil {
		return nil, nil, err
	}
	return compiled, m.optimizer.Optimize(compiled, config), nil
}

// SubmitGraph runs the full pipeline and starts execution in the
// background, returning the execution id.
func (m *Manager) SubmitGraph(ctx context.Context, req SubmitRequest) (string, error) {
	compiled, err := m.CompileGraph(req.Graph)
	if err != nil {
		m.logger.Warn("graph submission rejected", zap.Error(err))
		return "", err
	}

	if req.Optimize {
		m.optimizer.Optimize(compiled, &req.Config)
	}

	id, err := m.executor.Submit(executor.Request{
		Graph:       compiled,
		Input:       req.Inputs,
		Config:      req.Config,
		WorkspaceID: req.WorkspaceID,
		UserID:      req.UserID,
		AgentID:     req.AgentID,
	})
	if err != nil {
		return "", err
	}

	m.logger.Info("graph submitted",
		zap.String("execution_id", id),
		zap.String("workspace_id", req.WorkspaceID),
		zap.Int("nodes", len(compiled.Nodes)))
	return id, nil
}

// ExecuteGraph runs the full pipeline synchronously.
func (m *Manager) ExecuteGraph(ctx context.Context, req SubmitRequest) (*domain.ExecutionResult, error) {
	compiled, err := m.CompileGraph(req.Graph)
	if err != nil {
		return nil, err
	}

	if req.Optimize {
		m.optimizer.Optimize(compiled, &req.Config)
	}

	return m.executor.Execute(ctx, executor.Request{
		Graph:       compiled,
		Input:       req.Inputs,
		Config:      req.Config,
		WorkspaceID: req.WorkspaceID,
		UserID:      req.UserID,
		AgentID:     req.AgentID,
	})
}

// GetStatus returns the lifecycle state of an execution.
func (m *Manager) GetStatus(executionID string) (*domain.ExecutionContext, error) {
	status := m.executor.GetStatus(executionID)
	if status == nil {
		return nil, fmt.Errorf("execution not found: %s", executionID)
	}
	return status, nil
}

// GetResult returns the result of a finished execution.
func (m *Manager) GetResult(executionID string) (*domain.ExecutionResult, error) {
	result, ok := m.executor.GetResult(executionID)
	if !ok {
		return nil, fmt.Errorf("execution result not available: %s", executionID)
	}
	return result, nil
}

// PauseExecution pauses a running execution at its next level boundary.
func (m *Manager) PauseExecution(executionID string) error {
	if !m.executor.PauseExecution(executionID) {
		return fmt.Errorf("execution cannot be paused: %s", executionID)
	}
	return nil
}

// ResumeExecution resumes a paused execution.
func (m *Manager) ResumeExecution(executionID string) error {
	if !m.executor.ResumeExecution(executionID) {
		return fmt.Errorf("execution cannot be resumed: %s", executionID)
	}
	return nil
}

// CancelExecution cancels a running or paused execution.
func (m *Manager) CancelExecution(executionID string) error {
	if !m.executor.CancelExecution(executionID) {
		return fmt.Errorf("execution cannot be cancelled: %s", executionID)
	}
	return nil
}

// GetPauseInfo describes a paused execution, or nil if not paused.
func (m *Manager) GetPauseInfo(executionID string) *domain.PauseInfo {
	return m.executor.GetExecutionPauseInfo(executionID)
}

// GetEvents returns an execution's event log from the given version.
func (m *Manager) GetEvents(ctx context.Context, executionID string, fromVersion int) ([]*domain.Event, error) {
	return m.store.GetEvents(ctx, executionID, fromVersion)
}

// OptimizationHistory returns the optimizer's invocation history.
func (m *Manager) OptimizationHistory() []optimizer.HistoryEntry {
	return m.optimizer.History()
}

// Shutdown cancels all active executions.
func (m *Manager) Shutdown(ctx context.Context) error {
	return m.executor.Shutdown(ctx)
}
