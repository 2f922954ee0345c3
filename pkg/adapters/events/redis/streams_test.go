package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flowforge-io/flowforge/pkg/domain"
)

// deadClient returns a client that fails fast; acknowledgement failures are
// logged, not surfaced, so the message path stays testable without a server.
func deadClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "localhost:1",
		DialTimeout: 10 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func streamMessage(t *testing.T, event *domain.Event) redis.XMessage {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return redis.XMessage{
		ID:     "1-0",
		Values: map[string]interface{}{"data": string(data)},
	}
}

func TestConsumerProcessMessageInvokesHandler(t *testing.T) {
	c := NewConsumer(deadClient(), "engine", "worker-1", zap.NewNop())

	event := &domain.Event{
		ID:          "evt-1",
		Type:        domain.EventTypeNodeCompleted,
		ExecutionID: "exec-1",
		Timestamp:   time.Now(),
		Data:        map[string]interface{}{"node_type": "llm"},
	}

	var received *domain.Event
	c.processMessage(context.Background(), getStreamKey("exec-1"), streamMessage(t, event),
		func(ctx context.Context, e *domain.Event) error {
			received = e
			return nil
		})

	require.NotNil(t, received)
	assert.Equal(t, "evt-1", received.ID)
	assert.Equal(t, domain.EventTypeNodeCompleted, received.Type)
	assert.Equal(t, "exec-1", received.ExecutionID)
}

func TestConsumerProcessMessageSkipsMalformed(t *testing.T) {
	c := NewConsumer(deadClient(), "engine", "worker-1", zap.NewNop())

	invoked := false
	handler := func(ctx context.Context, e *domain.Event) error {
		invoked = true
		return nil
	}

	c.processMessage(context.Background(), getStreamKey("exec-1"), redis.XMessage{
		ID:     "1-0",
		Values: map[string]interface{}{"other": "field"},
	}, handler)
	assert.False(t, invoked, "missing data field must not reach the handler")

	c.processMessage(context.Background(), getStreamKey("exec-1"), redis.XMessage{
		ID:     "2-0",
		Values: map[string]interface{}{"data": "{not json"},
	}, handler)
	assert.False(t, invoked, "undecodable payload must not reach the handler")
}

func TestGetStreamKeyIsPerExecution(t *testing.T) {
	assert.Equal(t, "flowforge:events:stream:exec-1", getStreamKey("exec-1"))
	assert.NotEqual(t, getStreamKey("exec-1"), getStreamKey("exec-2"))
}
