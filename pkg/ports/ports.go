package ports

import (
	"context"
	"time"

	"github.com/flowforge-io/flowforge/pkg/domain"
)

// NodeExecutor is the injected capability that runs a single node. The
// engine is agnostic to concrete node semantics (LLM call, retrieval, tool
// invocation); it only requires this contract. The context carries the
// execution's cancellation; executors are expected to honor it, but the
// engine never preempts an in-flight call.
type NodeExecutor interface {
	Execute(ctx context.Context, node domain.Node, inputs map[string]interface{}, nodeCtx domain.NodeContext) (*domain.NodeOutput, error)
}

// EventHandler processes a single event. An error returned (or a panic
// raised) by a handler is logged and does not affect delivery to other
// handlers.
type EventHandler func(ctx context.Context, event *domain.Event) error

// EventBus is an in-process publish/subscribe channel for engine events.
// Subscribing with domain.EventTypeAll receives every event. Dispatch is
// asynchronous relative to the publisher; handlers registered for a single
// event type are invoked in subscription order.
type EventBus interface {
	Subscribe(eventType domain.EventType, handler EventHandler) (unsubscribe func())
	Publish(ctx context.Context, event *domain.Event)
	Close() error
}

// EventStore is an append-only per-execution event log. StoreEvent assigns
// the next 1-based version number within the event's execution stream.
type EventStore interface {
	StoreEvent(ctx context.Context, event *domain.Event) error
	GetEvents(ctx context.Context, executionID string, fromVersion int) ([]*domain.Event, error)
	GetEventsByType(ctx context.Context, eventType domain.EventType) ([]*domain.Event, error)
	GetEventsInTimeRange(ctx context.Context, start, end time.Time) ([]*domain.Event, error)
	DeleteOldEvents(ctx context.Context, cutoff time.Time) (int, error)
	GetEventStatistics(ctx context.Context) (*domain.EventStatistics, error)
}

// MetricsCollector records engine activity. Implementations must be safe
// for concurrent use.
type MetricsCollector interface {
	RecordExecutionStarted()
	RecordExecutionCompleted(status string, duration time.Duration)
	RecordNodeExecuted(nodeType, status string, duration time.Duration)
	RecordOptimizationPass(passType string)
	RecordResourceViolation()
	RecordEventPublished(eventType string)
	SetActiveExecutions(count int)
}
