package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flowforge-io/flowforge/pkg/domain"
)

func newEvent(eventType domain.EventType, executionID string) *domain.Event {
	return &domain.Event{
		ID:          "evt-" + string(eventType),
		Type:        eventType,
		ExecutionID: executionID,
		Timestamp:   time.Now(),
	}
}

func TestBus_PublishReachesExactAndWildcard(t *testing.T) {
	bus := NewBus(zap.NewNop())
	defer bus.Close()

	var mu sync.Mutex
	var exact, wild []domain.EventType
	done := make(chan struct{}, 2)

	bus.Subscribe(domain.EventTypeExecutionStarted, func(ctx context.Context, e *domain.Event) error {
		mu.Lock()
		exact = append(exact, e.Type)
		mu.Unlock()
		done <- struct{}{}
		return nil
	})
	bus.Subscribe(domain.EventTypeAll, func(ctx context.Context, e *domain.Event) error {
		mu.Lock()
		wild = append(wild, e.Type)
		mu.Unlock()
		done <- struct{}{}
		return nil
	})

	bus.Publish(context.Background(), newEvent(domain.EventTypeExecutionStarted, "exec-1"))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for delivery")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []domain.EventType{domain.EventTypeExecutionStarted}, exact)
	assert.Equal(t, []domain.EventType{domain.EventTypeExecutionStarted}, wild)
}

func TestBus_HandlersInvokedInSubscriptionOrder(t *testing.T) {
	bus := NewBus(zap.NewNop())
	defer bus.Close()

	var mu sync.Mutex
	var order []int
	done := make(chan struct{})

	for i := 0; i < 3; i++ {
		i := i
		bus.Subscribe(domain.EventTypeNodeStarted, func(ctx context.Context, e *domain.Event) error {
			mu.Lock()
			order = append(order, i)
			if len(order) == 3 {
				close(done)
			}
			mu.Unlock()
			return nil
		})
	}

	bus.Publish(context.Background(), newEvent(domain.EventTypeNodeStarted, "exec-1"))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestBus_HandlerErrorDoesNotBlockOthers(t *testing.T) {
	bus := NewBus(zap.NewNop())
	defer bus.Close()

	delivered := make(chan string, 3)

	bus.Subscribe(domain.EventTypeNodeFailed, func(ctx context.Context, e *domain.Event) error {
		delivered <- "first"
		return errors.New("broken subscriber")
	})
	bus.Subscribe(domain.EventTypeNodeFailed, func(ctx context.Context, e *domain.Event) error {
		delivered <- "second"
		panic("even worse subscriber")
	})
	bus.Subscribe(domain.EventTypeNodeFailed, func(ctx context.Context, e *domain.Event) error {
		delivered <- "third"
		return nil
	})

	bus.Publish(context.Background(), newEvent(domain.EventTypeNodeFailed, "exec-1"))

	got := make(map[string]bool)
	timeout := time.After(time.Second)
	for i := 0; i < 3; i++ {
		select {
		case name := <-delivered:
			got[name] = true
		case <-timeout:
			t.Fatalf("only %d handlers ran", len(got))
		}
	}
	assert.True(t, got["third"], "healthy handler must still receive the event")
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(zap.NewNop())
	defer bus.Close()

	received := make(chan struct{}, 2)
	unsubscribe := bus.Subscribe(domain.EventTypeNodeCompleted, func(ctx context.Context, e *domain.Event) error {
		received <- struct{}{}
		return nil
	})

	bus.Publish(context.Background(), newEvent(domain.EventTypeNodeCompleted, "exec-1"))
	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("expected delivery before unsubscribe")
	}

	unsubscribe()
	bus.Publish(context.Background(), newEvent(domain.EventTypeNodeCompleted, "exec-1"))

	select {
	case <-received:
		t.Fatal("received event after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_Metrics(t *testing.T) {
	bus := NewBus(zap.NewNop())

	done := make(chan struct{})
	bus.Subscribe(domain.EventTypeAll, func(ctx context.Context, e *domain.Event) error {
		close(done)
		return nil
	})

	bus.Publish(context.Background(), newEvent(domain.EventTypeExecutionStarted, "exec-1"))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
	require.NoError(t, bus.Close())

	metrics := bus.Metrics()
	assert.Equal(t, int64(1), metrics.EventsPublished)
	assert.Equal(t, int64(1), metrics.EventsProcessed)
}
