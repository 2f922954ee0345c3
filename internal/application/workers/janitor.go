package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/flowforge-io/flowforge/pkg/ports"
)

// Janitor periodically deletes events older than the retention window.
type Janitor struct {
	store     ports.EventStore
	retention time.Duration
	interval  time.Duration
	logger    *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// NewJanitor creates a retention worker. Events older than retention are
// removed every interval.
func NewJanitor(store ports.EventStore, retention, interval time.Duration, logger *zap.Logger) *Janitor {
	return &Janitor{
		store:     store,
		retention: retention,
		interval:  interval,
		logger:    logger,
	}
}

// Start launches the retention loop.
func (j *Janitor) Start() {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.done = make(chan struct{})
	j.mu.Unlock()

	j.logger.Info("event retention janitor started",
		zap.Duration("retention", j.retention),
		zap.Duration("interval", j.interval))
	go j.run()
}

// Stop halts the retention loop and waits for the current sweep to finish.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.running = false
	close(j.stopCh)
	done := j.done
	j.mu.Unlock()

	<-done
}

func (j *Janitor) run() {
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopCh:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

// sweep removes one batch of expired events.
func (j *Janitor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-j.retention)
	removed, err := j.store.DeleteOldEvents(ctx, cutoff)
	if err != nil {
		j.logger.Error("event retention sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		j.logger.Info("expired events removed",
			zap.Int("count", removed),
			zap.Time("cutoff", cutoff))
	}
}
