package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/flowforge-io/flowforge/pkg/domain"
	"github.com/flowforge-io/flowforge/pkg/ports"
)

// Bus is an in-process publish/subscribe event bus. Publish returns once
// delivery is scheduled; handlers registered for a single event type run
// in subscription order, and a failing handler never prevents delivery to
// the remaining handlers for the same event.
type Bus struct {
	logger *zap.Logger

	mu          sync.RWMutex
	subscribers map[domain.EventType][]*subscription
	nextID      uint64
	closed      bool

	wg              sync.WaitGroup
	eventsPublished atomic.Int64
	eventsProcessed atomic.Int64
}

type subscription struct {
	id      uint64
	handler ports.EventHandler
}

// BusMetrics is a snapshot of bus counters.
type BusMetrics struct {
	EventsPublished int64 `json:"events_published"`
	EventsProcessed int64 `json:"events_processed"`
	HandlersCount   int   `json:"handlers_count"`
}

// NewBus creates a new in-process event bus.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		logger:      logger,
		subscribers: make(map[domain.EventType][]*subscription),
	}
}

// Subscribe registers a handler for an event type. Subscribing with
// domain.EventTypeAll receives every event. The returned function removes
// the subscription.
func (b *Bus) Subscribe(eventType domain.EventType, handler ports.EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &subscription{id: b.nextID, handler: handler}
	b.subscribers[eventType] = append(b.subscribers[eventType], sub)
	id := sub.id

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[eventType]
		for i, s := range subs {
			if s.id == id {
				b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish dispatches an event to every handler registered for its exact
// type plus every wildcard handler. Dispatch is asynchronous relative to
// the publisher.
func (b *Bus) Publish(ctx context.Context, event *domain.Event) {
	if event == nil {
		return
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	targets := make([]*subscription, 0,
		len(b.subscribers[event.Type])+len(b.subscribers[domain.EventTypeAll]))
	targets = append(targets, b.subscribers[event.Type]...)
	targets = append(targets, b.subscribers[domain.EventTypeAll]...)
	b.wg.Add(1)
	b.mu.RUnlock()

	b.eventsPublished.Add(1)

	go func() {
		defer b.wg.Done()
		for _, sub := range targets {
			b.deliver(ctx, sub, event)
		}
	}()
}

// deliver invokes one handler, isolating panics and errors so one broken
// subscriber cannot affect the others.
func (b *Bus) deliver(ctx context.Context, sub *subscription, event *domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.Any("panic", r))
		}
	}()

	if err := sub.handler(ctx, event); err != nil {
		b.logger.Error("event handler error",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
	b.eventsProcessed.Add(1)
}

// Close stops accepting events and waits for in-flight deliveries.
func (b *Bus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.subscribers = make(map[domain.EventType][]*subscription)
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}

// Metrics returns a snapshot of the bus counters.
func (b *Bus) Metrics() BusMetrics {
	b.mu.RLock()
	handlers := 0
	for _, subs := range b.subscribers {
		handlers += len(subs)
	}
	b.mu.RUnlock()

	return BusMetrics{
		EventsPublished: b.eventsPublished.Load(),
		EventsProcessed: b.eventsProcessed.Load(),
		HandlersCount:   handlers,
	}
}
