package memory

import (
	"context"
	"sync"
	"time"

	"github.com/flowforge-io/flowforge/pkg/domain"
)

// Store is an in-memory append-only event log, keyed by execution id.
// Versions are 1-based per execution stream, assigned in the order events
// are accepted.
type Store struct {
	mu          sync.RWMutex
	byExecution map[string][]*domain.Event
	all         []*domain.Event
	// nextVersion outlives purges so versions never regress within a stream.
	nextVersion map[string]int
}

// NewStore creates an empty event store.
func NewStore() *Store {
	return &Store{
		byExecution: make(map[string][]*domain.Event),
		nextVersion: make(map[string]int),
	}
}

// StoreEvent appends an event to its execution's stream and assigns the
// next version number.
func (s *Store) StoreEvent(ctx context.Context, event *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextVersion[event.ExecutionID]++
	stored := *event
	stored.Version = s.nextVersion[event.ExecutionID]
	event.Version = stored.Version

	s.byExecution[event.ExecutionID] = append(s.byExecution[event.ExecutionID], &stored)
	s.all = append(s.all, &stored)
	return nil
}

// GetEvents returns an execution's events with version >= fromVersion, in
// insertion order. fromVersion 0 returns the full stream.
func (s *Store) GetEvents(ctx context.Context, executionID string, fromVersion int) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Event
	for _, e := range s.byExecution[executionID] {
		if e.Version >= fromVersion {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

// GetEventsByType returns all stored events of one type across executions,
// in insertion order.
func (s *Store) GetEventsByType(ctx context.Context, eventType domain.EventType) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Event
	for _, e := range s.all {
		if e.Type == eventType {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

// GetEventsInTimeRange returns events with start <= timestamp <= end
// across executions, in insertion order.
func (s *Store) GetEventsInTimeRange(ctx context.Context, start, end time.Time) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Event
	for _, e := range s.all {
		if !e.Timestamp.Before(start) && !e.Timestamp.After(end) {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

// DeleteOldEvents purges events older than the cutoff and returns the
// number removed. Versions of surviving events are not renumbered.
func (s *Store) DeleteOldEvents(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	kept := s.all[:0]
	for _, e := range s.all {
		if e.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.all = kept

	for id, stream := range s.byExecution {
		keptStream := stream[:0]
		for _, e := range stream {
			if e.Timestamp.Before(cutoff) {
				continue
			}
			keptStream = append(keptStream, e)
		}
		if len(keptStream) == 0 {
			delete(s.byExecution, id)
			continue
		}
		s.byExecution[id] = keptStream
	}
	return removed, nil
}

// GetEventStatistics returns the total event count and counts per type.
func (s *Store) GetEventStatistics(ctx context.Context) (*domain.EventStatistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &domain.EventStatistics{
		TotalEvents:  len(s.all),
		EventsByType: make(map[domain.EventType]int),
	}
	for _, e := range s.all {
		stats.EventsByType[e.Type]++
	}
	return stats, nil
}
