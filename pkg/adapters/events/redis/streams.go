package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/flowforge-io/flowforge/pkg/domain"
	"github.com/flowforge-io/flowforge/pkg/ports"
)

// Relay mirrors every event published on the in-process bus onto Redis
// Streams, one stream per execution, so external consumers can follow
// executions without holding a connection to this process.
type Relay struct {
	client      *redis.Client
	logger      *zap.Logger
	unsubscribe func()
}

// NewRelay attaches a wildcard subscription to the bus and starts relaying.
func NewRelay(client *redis.Client, bus ports.EventBus, logger *zap.Logger) *Relay {
	r := &Relay{
		client: client,
		logger: logger,
	}
	r.unsubscribe = bus.Subscribe(domain.EventTypeAll, r.relay)
	return r
}

// relay appends one event to its execution's stream.
func (r *Relay) relay(ctx context.Context, event *domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	streamKey := getStreamKey(event.ExecutionID)
	args := &redis.XAddArgs{
		Stream: streamKey,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}
	if _, err := r.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to add to stream: %w", err)
	}

	r.logger.Debug("event relayed",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("stream", streamKey))

	return nil
}

// Close detaches the relay from the bus.
func (r *Relay) Close() error {
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
	return nil
}

// Consumer reads relayed events from an execution's stream through a
// consumer group, so multiple processes can share the work of handling
// them.
type Consumer struct {
	client        *redis.Client
	logger        *zap.Logger
	consumerGroup string
	consumerName  string
}

// NewConsumer creates a stream consumer identified within its group.
func NewConsumer(client *redis.Client, consumerGroup, consumerName string, logger *zap.Logger) *Consumer {
	return &Consumer{
		client:        client,
		logger:        logger,
		consumerGroup: consumerGroup,
		consumerName:  consumerName,
	}
}

// Consume follows an execution's stream until the context ends, invoking
// the handler for each event and acknowledging on success.
func (c *Consumer) Consume(ctx context.Context, executionID string, handler ports.EventHandler) error {
	streamKey := getStreamKey(executionID)

	err := c.client.XGroupCreateMkStream(ctx, streamKey, c.consumerGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("consuming event stream",
		zap.String("stream", streamKey),
		zap.String("consumer_group", c.consumerGroup),
		zap.String("consumer", c.consumerName))

	go c.readStream(ctx, streamKey, handler)
	return nil
}

func (c *Consumer) readStream(ctx context.Context, streamKey string, handler ports.EventHandler) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
				Group:    c.consumerGroup,
				Consumer: c.consumerName,
				Streams:  []string{streamKey, ">"},
				Count:    10,
				Block:    time.Second,
			}).Result()

			if err != nil {
				if err == redis.Nil {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				c.logger.Error("failed to read from stream",
					zap.String("stream", streamKey),
					zap.Error(err))
				time.Sleep(time.Second)
				continue
			}

			for _, stream := range streams {
				for _, message := range stream.Messages {
					c.processMessage(ctx, streamKey, message, handler)
				}
			}
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, streamKey string, message redis.XMessage, handler ports.EventHandler) {
	data, ok := message.Values["data"].(string)
	if !ok {
		c.logger.Error("invalid message format",
			zap.String("stream", streamKey),
			zap.String("message_id", message.ID))
		return
	}

	event, err := decodeEvent(data)
	if err != nil {
		c.logger.Error("failed to unmarshal event",
			zap.String("stream", streamKey),
			zap.String("message_id", message.ID),
			zap.Error(err))
		return
	}

	if err := handler(ctx, event); err != nil {
		c.logger.Error("handler error",
			zap.String("stream", streamKey),
			zap.String("message_id", message.ID),
			zap.Error(err))
		return
	}

	if err := c.client.XAck(ctx, streamKey, c.consumerGroup, message.ID).Err(); err != nil {
		c.logger.Error("failed to acknowledge message",
			zap.String("stream", streamKey),
			zap.String("message_id", message.ID),
			zap.Error(err))
	}
}

// getStreamKey returns the Redis stream key for an execution.
func getStreamKey(executionID string) string {
	return fmt.Sprintf("flowforge:events:stream:%s", executionID)
}
