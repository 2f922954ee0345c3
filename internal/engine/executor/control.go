package executor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/flowforge-io/flowforge/pkg/domain"
)

// PauseExecution pauses a running execution. The executor blocks on the
// installed gate before dispatching the next level. Returns false when the
// execution does not exist or is not currently running.
func (e *Executor) PauseExecution(executionID string) bool {
	e.mu.Lock()
	state, ok := e.active[executionID]
	e.mu.Unlock()
	if !ok {
		return false
	}

	// The status transition and gate install happen under the state lock
	// so they are atomic with respect to the executor's finishing latch.
	state.mu.Lock()
	if state.finishing || state.cancelled {
		state.mu.Unlock()
		return false
	}
	if err := e.contexts.UpdateContextStatus(executionID, domain.ExecutionStatusPaused); err != nil {
		state.mu.Unlock()
		return false
	}
	state.gate = make(chan struct{})
	state.pausedAt = time.Now()
	state.snapshot = map[string]interface{}{
		"paused_at": state.pausedAt,
	}
	state.mu.Unlock()

	e.publishEvent(context.Background(), executionID, "", domain.EventTypeExecutionPaused, nil)
	e.logger.Info("execution paused", zap.String("execution_id", executionID))
	return true
}

// ResumeExecution releases a paused execution's gate. Returns false when
// the execution does not exist or is not paused.
func (e *Executor) ResumeExecution(executionID string) bool {
	e.mu.Lock()
	state, ok := e.active[executionID]
	e.mu.Unlock()
	if !ok {
		return false
	}

	if err := e.contexts.UpdateContextStatus(executionID, domain.ExecutionStatusRunning); err != nil {
		return false
	}

	state.mu.Lock()
	if state.gate != nil {
		close(state.gate)
		state.gate = nil
	}
	state.snapshot = nil
	state.pausedAt = time.Time{}
	state.mu.Unlock()

	e.publishEvent(context.Background(), executionID, "", domain.EventTypeExecutionResumed, nil)
	e.logger.Info("execution resumed", zap.String("execution_id", executionID))
	return true
}

// GetExecutionPauseInfo describes a paused execution, or returns nil when
// the execution is not paused.
func (e *Executor) GetExecutionPauseInfo(executionID string) *domain.PauseInfo {
	e.mu.Lock()
	state, ok := e.active[executionID]
	e.mu.Unlock()
	if !ok {
		return nil
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if state.gate == nil {
		return nil
	}
	return &domain.PauseInfo{
		ExecutionID:           executionID,
		PausedAt:              state.pausedAt,
		PausedDurationSeconds: time.Since(state.pausedAt).Seconds(),
		Status:                domain.ExecutionStatusPaused,
		CanResume:             true,
	}
}

// CancelExecution cancels a running or paused execution. Scheduling stops
// at the next level boundary; in-flight node calls are allowed to finish.
func (e *Executor) CancelExecution(executionID string) bool {
	e.mu.Lock()
	state, ok := e.active[executionID]
	e.mu.Unlock()
	if !ok {
		return false
	}

	state.mu.Lock()
	if state.finishing {
		state.mu.Unlock()
		return false
	}
	if err := e.contexts.UpdateContextStatus(executionID, domain.ExecutionStatusCancelled); err != nil {
		state.mu.Unlock()
		return false
	}
	state.cancelled = true
	if state.gate != nil {
		close(state.gate)
		state.gate = nil
	}
	if state.cancel != nil {
		state.cancel()
	}
	state.mu.Unlock()

	e.publishEvent(context.Background(), executionID, "", domain.EventTypeExecutionCancelled, nil)
	e.logger.Info("execution cancelled", zap.String("execution_id", executionID))
	return true
}

// Shutdown cancels every active execution and returns once the active set
// drains or the context expires.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	ids := make([]string, 0, len(e.active))
	for id := range e.active {
		ids = append(ids, id)
	}
	e.mu.Unlock()

	for _, id := range ids {
		e.CancelExecution(id)
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		e.mu.Lock()
		remaining := len(e.active)
		e.mu.Unlock()
		if remaining == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// waitIfPaused blocks on the execution's pause gate until it is released
// or the run context ends.
func (e *Executor) waitIfPaused(ctx context.Context, state *executionState) error {
	state.mu.Lock()
	gate := state.gate
	state.mu.Unlock()
	if gate == nil {
		return nil
	}

	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// finishOrWait blocks on the pause gate like waitIfPaused, but once the
// gate is clear it sets the finishing latch under the state lock, so a late
// pause cannot land between the check and the terminal transition.
func (e *Executor) finishOrWait(ctx context.Context, state *executionState) error {
	for {
		state.mu.Lock()
		if state.cancelled {
			state.mu.Unlock()
			return nil
		}
		gate := state.gate
		if gate == nil {
			state.finishing = true
			state.mu.Unlock()
			return nil
		}
		state.mu.Unlock()

		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *executionState) isCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}
