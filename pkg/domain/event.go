package domain

import "time"

// EventType classifies engine events.
type EventType string

const (
	// EventTypeAll subscribes a handler to every event type.
	EventTypeAll EventType = "*"

	EventTypeExecutionStarted   EventType = "execution.started"
	EventTypeExecutionCompleted EventType = "execution.completed"
	EventTypeExecutionFailed    EventType = "execution.failed"
	EventTypeExecutionCancelled EventType = "execution.cancelled"
	EventTypeExecutionPaused    EventType = "execution.paused"
	EventTypeExecutionResumed   EventType = "execution.resumed"

	EventTypeNodeStarted   EventType = "node.started"
	EventTypeNodeCompleted EventType = "node.completed"
	EventTypeNodeFailed    EventType = "node.failed"
	EventTypeNodeOutput    EventType = "node.output"
)

// Event records one execution state transition. Events are immutable once
// created; Version is the 1-based position within the execution's
// append-only log, assigned by the event store.
type Event struct {
	ID          string                 `json:"event_id"`
	Type        EventType              `json:"event_type"`
	ExecutionID string                 `json:"execution_id"`
	NodeID      string                 `json:"node_id,omitempty"`
	Version     int                    `json:"version,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
	Data        map[string]interface{} `json:"data,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// EventStatistics summarizes a store's contents.
type EventStatistics struct {
	TotalEvents  int               `json:"total_events"`
	EventsByType map[EventType]int `json:"events_by_type"`
}
