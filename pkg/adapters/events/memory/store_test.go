package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge-io/flowforge/pkg/domain"
)

func storeEvents(t *testing.T, s *Store, executionID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := s.StoreEvent(context.Background(), &domain.Event{
			ID:          fmt.Sprintf("%s-evt-%d", executionID, i),
			Type:        domain.EventTypeNodeCompleted,
			ExecutionID: executionID,
			Timestamp:   time.Now(),
		})
		require.NoError(t, err)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	s := NewStore()
	storeEvents(t, s, "exec-1", 5)

	events, err := s.GetEvents(context.Background(), "exec-1", 0)
	require.NoError(t, err)
	require.Len(t, events, 5)
	for i, e := range events {
		assert.Equal(t, i+1, e.Version, "versions are 1-based and sequential")
		assert.Equal(t, fmt.Sprintf("exec-1-evt-%d", i), e.ID)
	}

	fromTwo, err := s.GetEvents(context.Background(), "exec-1", 2)
	require.NoError(t, err)
	assert.Len(t, fromTwo, 4)
	assert.Equal(t, 2, fromTwo[0].Version)
}

func TestStore_VersionsPerExecution(t *testing.T) {
	s := NewStore()
	storeEvents(t, s, "exec-a", 3)
	storeEvents(t, s, "exec-b", 2)

	a, err := s.GetEvents(context.Background(), "exec-a", 0)
	require.NoError(t, err)
	b, err := s.GetEvents(context.Background(), "exec-b", 0)
	require.NoError(t, err)

	assert.Equal(t, 3, a[len(a)-1].Version)
	assert.Equal(t, 2, b[len(b)-1].Version)
}

func TestStore_GetEventsByType(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.StoreEvent(context.Background(), &domain.Event{
		ID: "e1", Type: domain.EventTypeExecutionStarted, ExecutionID: "x", Timestamp: time.Now(),
	}))
	require.NoError(t, s.StoreEvent(context.Background(), &domain.Event{
		ID: "e2", Type: domain.EventTypeNodeStarted, ExecutionID: "x", Timestamp: time.Now(),
	}))
	require.NoError(t, s.StoreEvent(context.Background(), &domain.Event{
		ID: "e3", Type: domain.EventTypeExecutionStarted, ExecutionID: "y", Timestamp: time.Now(),
	}))

	started, err := s.GetEventsByType(context.Background(), domain.EventTypeExecutionStarted)
	require.NoError(t, err)
	require.Len(t, started, 2)
	assert.Equal(t, "e1", started[0].ID)
	assert.Equal(t, "e3", started[1].ID)
}

func TestStore_GetEventsInTimeRange(t *testing.T) {
	s := NewStore()
	base := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.StoreEvent(context.Background(), &domain.Event{
			ID:          fmt.Sprintf("e%d", i),
			Type:        domain.EventTypeNodeCompleted,
			ExecutionID: "exec-1",
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
		}))
	}

	events, err := s.GetEventsInTimeRange(context.Background(), base, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestStore_DeleteOldEvents(t *testing.T) {
	s := NewStore()
	old := time.Now().Add(-time.Hour)
	require.NoError(t, s.StoreEvent(context.Background(), &domain.Event{
		ID: "old", Type: domain.EventTypeNodeCompleted, ExecutionID: "exec-1", Timestamp: old,
	}))
	storeEvents(t, s, "exec-1", 2)

	removed, err := s.DeleteOldEvents(context.Background(), time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	remaining, err := s.GetEvents(context.Background(), "exec-1", 0)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}

func TestStore_VersionsSurvivePurge(t *testing.T) {
	s := NewStore()
	old := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.StoreEvent(context.Background(), &domain.Event{
			ID:          fmt.Sprintf("old-%d", i),
			Type:        domain.EventTypeNodeCompleted,
			ExecutionID: "exec-1",
			Timestamp:   old,
		}))
	}
	storeEvents(t, s, "exec-1", 1)

	removed, err := s.DeleteOldEvents(context.Background(), time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.Equal(t, 3, removed)

	next := &domain.Event{
		ID: "after-purge", Type: domain.EventTypeNodeCompleted, ExecutionID: "exec-1", Timestamp: time.Now(),
	}
	require.NoError(t, s.StoreEvent(context.Background(), next))
	assert.Equal(t, 5, next.Version, "version keeps increasing after a purge")

	events, err := s.GetEvents(context.Background(), "exec-1", 5)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "after-purge", events[0].ID)
}

func TestStore_Statistics(t *testing.T) {
	s := NewStore()
	storeEvents(t, s, "exec-1", 3)
	require.NoError(t, s.StoreEvent(context.Background(), &domain.Event{
		ID: "e-s", Type: domain.EventTypeExecutionStarted, ExecutionID: "exec-1", Timestamp: time.Now(),
	}))

	stats, err := s.GetEventStatistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalEvents)
	assert.Equal(t, 3, stats.EventsByType[domain.EventTypeNodeCompleted])
	assert.Equal(t, 1, stats.EventsByType[domain.EventTypeExecutionStarted])
}
