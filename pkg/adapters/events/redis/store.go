package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/flowforge-io/flowforge/pkg/domain"
)

// Store implements EventStore on Redis. Each execution keeps its
// append-only log in a list; a sorted set scored by timestamp indexes
// every event for type and time-range queries.
type Store struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewStore creates a Redis-backed event store. Execution logs expire
// after ttl; pass zero to keep them indefinitely.
func NewStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Store {
	return &Store{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// StoreEvent assigns the event's version from the execution's sequence
// counter and appends it to the log.
func (s *Store) StoreEvent(ctx context.Context, event *domain.Event) error {
	version, err := s.client.Incr(ctx, getSequenceKey(event.ExecutionID)).Result()
	if err != nil {
		return fmt.Errorf("failed to advance event sequence: %w", err)
	}
	event.Version = int(version)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	logKey := getLogKey(event.ExecutionID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, logKey, data)
	pipe.ZAdd(ctx, timelineKey, redis.Z{
		Score:  float64(event.Timestamp.UnixNano()),
		Member: string(data),
	})
	if s.ttl > 0 {
		pipe.Expire(ctx, logKey, s.ttl)
		pipe.Expire(ctx, getSequenceKey(event.ExecutionID), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store event: %w", err)
	}

	s.logger.Debug("event stored",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("execution_id", event.ExecutionID),
		zap.Int("version", event.Version))

	return nil
}

// GetEvents returns an execution's events with version >= fromVersion,
// in version order.
func (s *Store) GetEvents(ctx context.Context, executionID string, fromVersion int) ([]*domain.Event, error) {
	entries, err := s.client.LRange(ctx, getLogKey(executionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}

	events := make([]*domain.Event, 0, len(entries))
	for _, entry := range entries {
		event, err := decodeEvent(entry)
		if err != nil {
			s.logger.Error("failed to unmarshal stored event",
				zap.String("execution_id", executionID),
				zap.Error(err))
			continue
		}
		if event.Version >= fromVersion {
			events = append(events, event)
		}
	}
	return events, nil
}

// GetEventsByType returns every stored event of the given type, oldest first.
func (s *Store) GetEventsByType(ctx context.Context, eventType domain.EventType) ([]*domain.Event, error) {
	entries, err := s.client.ZRange(ctx, timelineKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read event timeline: %w", err)
	}

	var events []*domain.Event
	for _, entry := range entries {
		event, err := decodeEvent(entry)
		if err != nil {
			continue
		}
		if event.Type == eventType {
			events = append(events, event)
		}
	}
	return events, nil
}

// GetEventsInTimeRange returns events with start <= timestamp <= end.
func (s *Store) GetEventsInTimeRange(ctx context.Context, start, end time.Time) ([]*domain.Event, error) {
	entries, err := s.client.ZRangeByScore(ctx, timelineKey, &redis.ZRangeBy{
		Min: fmt.Sprintf("%d", start.UnixNano()),
		Max: fmt.Sprintf("%d", end.UnixNano()),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read event timeline: %w", err)
	}

	events := make([]*domain.Event, 0, len(entries))
	for _, entry := range entries {
		event, err := decodeEvent(entry)
		if err != nil {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// DeleteOldEvents drops timeline entries older than cutoff and returns
// how many were removed. Per-execution logs are reclaimed by their TTL.
func (s *Store) DeleteOldEvents(ctx context.Context, cutoff time.Time) (int, error) {
	max := fmt.Sprintf("(%d", cutoff.UnixNano())
	removed, err := s.client.ZRemRangeByScore(ctx, timelineKey, "-inf", max).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to delete old events: %w", err)
	}
	return int(removed), nil
}

// GetEventStatistics summarizes the timeline contents.
func (s *Store) GetEventStatistics(ctx context.Context) (*domain.EventStatistics, error) {
	entries, err := s.client.ZRange(ctx, timelineKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read event timeline: %w", err)
	}

	stats := &domain.EventStatistics{
		TotalEvents:  len(entries),
		EventsByType: make(map[domain.EventType]int),
	}
	for _, entry := range entries {
		event, err := decodeEvent(entry)
		if err != nil {
			continue
		}
		stats.EventsByType[event.Type]++
	}
	return stats, nil
}

func decodeEvent(data string) (*domain.Event, error) {
	var event domain.Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return nil, err
	}
	return &event, nil
}

const timelineKey = "flowforge:events:timeline"

func getLogKey(executionID string) string {
	return fmt.Sprintf("flowforge:events:log:%s", executionID)
}

func getSequenceKey(executionID string) string {
	return fmt.Sprintf("flowforge:events:seq:%s", executionID)
}
