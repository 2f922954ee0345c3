package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flowforge-io/flowforge/internal/engine/execution"
	"github.com/flowforge-io/flowforge/internal/engine/resources"
	"github.com/flowforge-io/flowforge/pkg/domain"
	"github.com/flowforge-io/flowforge/pkg/ports"
)

// defaultMaxParallel bounds per-level concurrency when the execution
// config does not.
const defaultMaxParallel = 4

// Request bundles everything needed to run one compiled graph.
type Request struct {
	Graph       *domain.CompiledGraph
	Input       map[string]interface{}
	Config      domain.ExecutionConfig
	WorkspaceID string
	UserID      string
	AgentID     string
}

// Executor orchestrates compiled-graph execution using the context
// manager, resource manager, event bus/store, and an injected node
// executor capability.
type Executor struct {
	contexts  *execution.ContextManager
	resources *resources.Manager
	bus       ports.EventBus
	store     ports.EventStore
	nodes     ports.NodeExecutor
	metrics   ports.MetricsCollector
	logger    *zap.Logger

	mu      sync.Mutex
	active  map[string]*executionState
	results map[string]*domain.ExecutionResult
}

// executionState holds the per-execution pause gate and cancellation token.
type executionState struct {
	mu        sync.Mutex
	gate      chan struct{} // non-nil while paused; closed by resume/cancel
	pausedAt  time.Time
	snapshot  map[string]interface{}
	cancel    context.CancelFunc
	cancelled bool
	finishing bool // set once the terminal transition is committed to
}

// New creates a DAG executor.
func New(
	contexts *execution.ContextManager,
	rm *resources.Manager,
	bus ports.EventBus,
	store ports.EventStore,
	nodes ports.NodeExecutor,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
) *Executor {
	return &Executor{
		contexts:  contexts,
		resources: rm,
		bus:       bus,
		store:     store,
		nodes:     nodes,
		metrics:   metrics,
		logger:    logger,
		active:    make(map[string]*executionState),
		results:   make(map[string]*domain.ExecutionResult),
	}
}

// Execute runs a compiled graph to completion and returns its result.
// Invalid compiled graphs are refused before any state is created.
func (e *Executor) Execute(ctx context.Context, req Request) (*domain.ExecutionResult, error) {
	if req.Graph == nil || !req.Graph.IsValid {
		return nil, fmt.Errorf("cannot execute invalid compiled graph: %v", graphErrors(req.Graph))
	}

	execCtx := e.contexts.CreateContext(req.WorkspaceID, req.UserID, req.AgentID)
	return e.run(ctx, execCtx, req), nil
}

// Submit starts an execution in the background and returns its id
// immediately. The result becomes available via GetResult once the
// execution reaches a terminal state.
func (e *Executor) Submit(req Request) (string, error) {
	if req.Graph == nil || !req.Graph.IsValid {
		return "", fmt.Errorf("cannot execute invalid compiled graph: %v", graphErrors(req.Graph))
	}

	execCtx := e.contexts.CreateContext(req.WorkspaceID, req.UserID, req.AgentID)
	go func() {
		result := e.run(context.Background(), execCtx, req)
		e.mu.Lock()
		e.results[result.ExecutionID] = result
		e.mu.Unlock()
	}()
	return execCtx.ExecutionID, nil
}

// GetResult returns the result of a finished execution.
func (e *Executor) GetResult(executionID string) (*domain.ExecutionResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	result, ok := e.results[executionID]
	return result, ok
}

// GetStatus returns the execution context for an id, active or historical.
func (e *Executor) GetStatus(executionID string) *domain.ExecutionContext {
	return e.contexts.GetContext(executionID)
}

// run drives one execution through the level-barrier loop. The context,
// resource allocation, and pause state are released on every exit path.
func (e *Executor) run(ctx context.Context, execCtx *domain.ExecutionContext, req Request) *domain.ExecutionResult {
	execID := execCtx.ExecutionID
	start := time.Now()

	result := &domain.ExecutionResult{
		ExecutionID: execID,
		OutputData:  map[string]interface{}{},
		Errors:      []string{},
		Metrics:     map[string]interface{}{},
	}

	// Scoped resource acquisition: denied allocation fails the execution
	// before any node runs.
	prediction := e.resources.PredictResourceUsage(req.Graph.Nodes, nil)
	if _, err := e.resources.AllocateResources(execID, prediction.ResourceRequirements); err != nil {
		e.logger.Warn("execution denied by resource manager",
			zap.String("execution_id", execID),
			zap.Error(err))
		e.metrics.RecordResourceViolation()
		_ = e.contexts.UpdateContextStatus(execID, domain.ExecutionStatusFailed)
		e.contexts.RemoveContext(execID)
		result.Status = domain.ExecutionStatusFailed
		result.Errors = append(result.Errors, err.Error())
		result.Duration = time.Since(start)
		e.metrics.RecordExecutionCompleted(string(result.Status), result.Duration)
		return result
	}
	defer e.resources.ReleaseResources(execID)
	defer e.contexts.RemoveContext(execID)

	runCtx := ctx
	var cancel context.CancelFunc
	if req.Config.MaxExecutionTime > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(req.Config.MaxExecutionTime)*time.Second)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	state := &executionState{cancel: cancel}
	e.mu.Lock()
	e.active[execID] = state
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.active, execID)
		e.mu.Unlock()
		e.metrics.SetActiveExecutions(e.contexts.ActiveCount())
	}()

	_ = e.contexts.UpdateContextStatus(execID, domain.ExecutionStatusRunning)
	e.metrics.RecordExecutionStarted()
	e.metrics.SetActiveExecutions(e.contexts.ActiveCount())
	e.publishEvent(runCtx, execID, "", domain.EventTypeExecutionStarted, map[string]interface{}{
		"node_count":  len(req.Graph.Nodes),
		"level_count": len(req.Graph.ExecutionPlan),
	})

	e.logger.Info("execution started",
		zap.String("execution_id", execID),
		zap.Int("nodes", len(req.Graph.Nodes)),
		zap.Int("levels", len(req.Graph.ExecutionPlan)))

	byID := make(map[string]*domain.Node, len(req.Graph.Nodes))
	for i := range req.Graph.Nodes {
		byID[req.Graph.Nodes[i].ID] = &req.Graph.Nodes[i]
	}

	outputs := make(map[string]*domain.NodeOutput, len(req.Graph.Nodes))
	var outputsMu sync.Mutex
	var nodesExecuted, levelsCompleted int
	terminal := domain.ExecutionStatusCompleted

levels:
	for _, level := range req.Graph.ExecutionPlan {
		// The pause gate and the cancellation token are both checked at
		// level boundaries only.
		if err := e.waitIfPaused(runCtx, state); err != nil || state.isCancelled() {
			terminal = e.interruptStatus(state, err, result)
			break levels
		}

		levelErrors := e.dispatchLevel(runCtx, execID, level, byID, outputs, &outputsMu, req, &nodesExecuted)
		if state.isCancelled() {
			terminal = e.interruptStatus(state, runCtx.Err(), result)
			break levels
		}
		if len(levelErrors) > 0 {
			result.Errors = append(result.Errors, levelErrors...)
			terminal = domain.ExecutionStatusFailed
			break levels
		}
		levelsCompleted++
	}

	// A pause issued during the final level holds the execution open until
	// it is resumed or cancelled. The finishing latch makes the gate check
	// and the commitment to complete atomic, so a pause cannot land between
	// them and leave the context stuck in paused.
	if terminal == domain.ExecutionStatusCompleted {
		if err := e.finishOrWait(runCtx, state); err != nil || state.isCancelled() {
			terminal = e.interruptStatus(state, err, result)
		}
	}

	// Partial results from completed output nodes are preserved even on
	// failure.
	outputsMu.Lock()
	for _, n := range req.Graph.Nodes {
		if n.Type != domain.NodeTypeOutput {
			continue
		}
		if out, ok := outputs[n.ID]; ok {
			result.OutputData[n.ID] = out.Data
		}
	}
	outputsMu.Unlock()

	result.Status = terminal
	result.Duration = time.Since(start)
	result.Metrics["nodes_executed"] = nodesExecuted
	result.Metrics["levels_completed"] = levelsCompleted
	result.Metrics["node_count"] = len(req.Graph.Nodes)

	switch terminal {
	case domain.ExecutionStatusCompleted:
		_ = e.contexts.UpdateContextStatus(execID, domain.ExecutionStatusCompleted)
		e.publishEvent(runCtx, execID, "", domain.EventTypeExecutionCompleted, map[string]interface{}{
			"duration_seconds": result.Duration.Seconds(),
			"nodes_executed":   nodesExecuted,
		})
	case domain.ExecutionStatusFailed:
		_ = e.contexts.UpdateContextStatus(execID, domain.ExecutionStatusFailed)
		e.publishEvent(runCtx, execID, "", domain.EventTypeExecutionFailed, map[string]interface{}{
			"errors": result.Errors,
		})
	case domain.ExecutionStatusCancelled:
		// CancelExecution already transitioned the context and published
		// the cancellation event.
	}

	e.metrics.RecordExecutionCompleted(string(terminal), result.Duration)
	e.logger.Info("execution finished",
		zap.String("execution_id", execID),
		zap.String("status", string(terminal)),
		zap.Duration("duration", result.Duration),
		zap.Int("nodes_executed", nodesExecuted))
	return result
}

// dispatchLevel runs every node in one level concurrently, bounded by
// max_parallel_nodes, and waits for all of them. A node failure does not
// stop its in-flight siblings.
func (e *Executor) dispatchLevel(
	ctx context.Context,
	execID string,
	level []string,
	byID map[string]*domain.Node,
	outputs map[string]*domain.NodeOutput,
	outputsMu *sync.Mutex,
	req Request,
	nodesExecuted *int,
) []string {
	maxParallel := req.Config.MaxParallelNodes
	if maxParallel <= 0 {
		maxParallel = defaultMaxParallel
	}
	sem := make(chan struct{}, maxParallel)

	var wg sync.WaitGroup
	var errsMu sync.Mutex
	var levelErrors []string

	for _, nodeID := range level {
		node, ok := byID[nodeID]
		if !ok {
			errsMu.Lock()
			levelErrors = append(levelErrors, fmt.Sprintf("execution plan references unknown node %s", nodeID))
			errsMu.Unlock()
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(node *domain.Node) {
			defer wg.Done()
			defer func() { <-sem }()

			inputs := e.buildNodeInputs(node, outputs, outputsMu, req.Input)
			out, err := e.executeNode(ctx, execID, node, inputs, req.Config)
			if err != nil {
				errsMu.Lock()
				levelErrors = append(levelErrors, fmt.Sprintf("node %s failed: %v", node.ID, err))
				errsMu.Unlock()
				return
			}

			outputsMu.Lock()
			outputs[node.ID] = out
			*nodesExecuted++
			outputsMu.Unlock()
		}(node)
	}
	wg.Wait()
	return levelErrors
}

// executeNode dispatches a single node to the node executor with the
// configured retry budget and publishes its lifecycle events.
func (e *Executor) executeNode(
	ctx context.Context,
	execID string,
	node *domain.Node,
	inputs map[string]interface{},
	config domain.ExecutionConfig,
) (*domain.NodeOutput, error) {
	e.publishEvent(ctx, execID, node.ID, domain.EventTypeNodeStarted, map[string]interface{}{
		"node_type": string(node.Type),
	})

	start := time.Now()
	var out *domain.NodeOutput
	var err error
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		nodeCtx := domain.NodeContext{
			ExecutionID: execID,
			NodeID:      node.ID,
			Attempt:     attempt,
		}
		out, err = e.nodes.Execute(ctx, *node, inputs, nodeCtx)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			break
		}
		if attempt < config.MaxRetries {
			e.logger.Warn("node execution retrying",
				zap.String("execution_id", execID),
				zap.String("node_id", node.ID),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
		}
	}
	duration := time.Since(start)

	if err != nil {
		e.publishEvent(ctx, execID, node.ID, domain.EventTypeNodeFailed, map[string]interface{}{
			"node_type": string(node.Type),
			"error":     err.Error(),
		})
		e.metrics.RecordNodeExecuted(string(node.Type), string(domain.ExecutionStatusFailed), duration)
		e.logger.Error("node execution failed",
			zap.String("execution_id", execID),
			zap.String("node_id", node.ID),
			zap.Error(err))
		return nil, err
	}

	if out == nil {
		out = &domain.NodeOutput{Data: map[string]interface{}{}}
	}
	if out.ExecutionTime == 0 {
		out.ExecutionTime = duration
	}

	if config.EnableStreaming {
		e.publishEvent(ctx, execID, node.ID, domain.EventTypeNodeOutput, map[string]interface{}{
			"output": out.Data,
		})
	}
	e.publishEvent(ctx, execID, node.ID, domain.EventTypeNodeCompleted, map[string]interface{}{
		"node_type":        string(node.Type),
		"duration_seconds": duration.Seconds(),
	})
	e.metrics.RecordNodeExecuted(string(node.Type), string(domain.ExecutionStatusCompleted), duration)
	return out, nil
}

// buildNodeInputs assembles a node's inputs from its dependencies'
// outputs. Nodes without dependencies (graph entry points) receive the
// execution's input data.
func (e *Executor) buildNodeInputs(
	node *domain.Node,
	outputs map[string]*domain.NodeOutput,
	outputsMu *sync.Mutex,
	executionInput map[string]interface{},
) map[string]interface{} {
	if len(node.Dependencies) == 0 {
		inputs := make(map[string]interface{}, len(executionInput))
		for k, v := range executionInput {
			inputs[k] = v
		}
		return inputs
	}

	inputs := make(map[string]interface{}, len(node.Dependencies))
	outputsMu.Lock()
	for _, dep := range node.Dependencies {
		if out, ok := outputs[dep]; ok {
			inputs[dep] = out.Data
		}
	}
	outputsMu.Unlock()
	return inputs
}

// interruptStatus classifies a level-boundary interruption as a
// cancellation or a failure (timeout), appending the failure reason.
func (e *Executor) interruptStatus(state *executionState, err error, result *domain.ExecutionResult) domain.ExecutionStatus {
	if state.isCancelled() {
		return domain.ExecutionStatusCancelled
	}
	if err != nil {
		if err == context.DeadlineExceeded {
			result.Errors = append(result.Errors, "execution timeout")
		} else {
			result.Errors = append(result.Errors, err.Error())
		}
	}
	return domain.ExecutionStatusFailed
}

// publishEvent stores an event (assigning its version) and broadcasts it.
// Store failures are logged and swallowed: observability failures must
// never fail the workflow.
func (e *Executor) publishEvent(ctx context.Context, execID, nodeID string, eventType domain.EventType, data map[string]interface{}) {
	event := &domain.Event{
		ID:          uuid.New().String(),
		Type:        eventType,
		ExecutionID: execID,
		NodeID:      nodeID,
		Timestamp:   time.Now(),
		Data:        data,
	}

	if err := e.store.StoreEvent(ctx, event); err != nil {
		e.logger.Error("failed to store event",
			zap.String("execution_id", execID),
			zap.String("event_type", string(eventType)),
			zap.Error(err))
	}
	e.bus.Publish(ctx, event)
	e.metrics.RecordEventPublished(string(eventType))
}

func graphErrors(g *domain.CompiledGraph) []string {
	if g == nil {
		return []string{"graph is nil"}
	}
	return g.Errors
}
