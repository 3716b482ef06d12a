package services

import (
	"context"
	"sync"
	"time"

	"github.com/aktsmm/powerplat-update/internal/core/domain"
	"github.com/aktsmm/powerplat-update/internal/core/ports/driving"
	"github.com/aktsmm/powerplat-update/internal/logger"
)

// DefaultSyncInterval is how often the scheduler refreshes the cache.
const DefaultSyncInterval = 30 * time.Minute

// Scheduler runs periodic background syncs while the process serves
// queries. It reuses the orchestrator's mutual exclusion, so a manual run
// and a scheduled run never interleave.
type Scheduler struct {
	runner   driving.SyncRunner
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler. A non-positive interval falls back to
// the default.
func NewScheduler(runner driving.SyncRunner, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	return &Scheduler{runner: runner, interval: interval}
}

// Start begins the scheduler loop. This method blocks until Stop is
// called or the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	// First refresh happens immediately on startup.
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// Stop gracefully shuts down the scheduler and waits for an in-flight
// scheduled run to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// runOnce triggers one incremental sync, swallowing errors into the log.
func (s *Scheduler) runOnce(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		result := s.runner.RunSync(ctx, domain.SyncOptions{Incremental: true})
		if !result.Success {
			logger.Warn("scheduled sync finished with errors: %s", result.Err)
			return
		}
		logger.Info("scheduled sync: %d article(s) updated", result.UpdatedCount)
	}()
}
