package domain

import "time"

// ExecutionStatus is the lifecycle state of a graph execution.
type ExecutionStatus string

const (
	ExecutionStatusReady     ExecutionStatus = "ready"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusPaused    ExecutionStatus = "paused"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// IsTerminal reports whether the status is a final state.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted ||
		s == ExecutionStatusFailed ||
		s == ExecutionStatusCancelled
}

// ExecutionContext tracks one execution's lifecycle. It is created by the
// context manager and owned exclusively by the executor while active.
type ExecutionContext struct {
	ExecutionID string          `json:"execution_id"`
	WorkspaceID string          `json:"workspace_id"`
	UserID      string          `json:"user_id"`
	AgentID     string          `json:"agent_id"`
	Status      ExecutionStatus `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ExecutionConfig holds the caller-supplied knobs recognized by the engine.
type ExecutionConfig struct {
	// MaxExecutionTime caps the execution wall clock, in seconds.
	MaxExecutionTime int `json:"max_execution_time,omitempty"`
	// MaxParallelNodes bounds concurrent node dispatches within one level.
	MaxParallelNodes int `json:"max_parallel_nodes,omitempty"`
	// MaxRetries is the per-node retry budget.
	MaxRetries int `json:"max_retries,omitempty"`
	// MemoryLimitMB is a soft warning threshold.
	MemoryLimitMB int `json:"memory_limit_mb,omitempty"`
	// EnableStreaming emits node outputs as events while the run progresses.
	EnableStreaming bool `json:"enable_streaming,omitempty"`
}

// ExecutionResult is returned to callers when an execution finishes.
type ExecutionResult struct {
	ExecutionID string                 `json:"execution_id"`
	Status      ExecutionStatus        `json:"status"`
	OutputData  map[string]interface{} `json:"output_data"`
	Errors      []string               `json:"errors"`
	Duration    time.Duration          `json:"duration"`
	Metrics     map[string]interface{} `json:"metrics"`
}

// NodeContext carries per-node execution metadata into the node executor.
type NodeContext struct {
	ExecutionID string `json:"execution_id"`
	NodeID      string `json:"node_id"`
	WorkspaceID string `json:"workspace_id"`
	Attempt     int    `json:"attempt"`
}

// NodeOutput is the result of a single node execution.
type NodeOutput struct {
	Data          map[string]interface{} `json:"data"`
	ExecutionTime time.Duration          `json:"execution_time"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// PauseInfo describes a paused execution.
type PauseInfo struct {
	ExecutionID           string          `json:"execution_id"`
	PausedAt              time.Time       `json:"paused_at"`
	PausedDurationSeconds float64         `json:"paused_duration_seconds"`
	Status                ExecutionStatus `json:"status"`
	CanResume             bool            `json:"can_resume"`
}
