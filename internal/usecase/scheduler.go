package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	xlogger "Predictelligence/pkg/logger"
)

// Scheduler drives the pipeline's training cycle on a fixed interval in a
// single background goroutine. States: STOPPED → RUNNING → STOPPED. Ticks
// never overlap: if one is still executing when the next is due, the due
// tick is skipped, not queued.
type Scheduler struct {
	pipeline *Pipeline
	interval time.Duration
	logger   *xlogger.Logger

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	inFlight atomic.Bool
	ticks    sync.WaitGroup
	skipped  atomic.Int64
}

func NewScheduler(pipeline *Pipeline, interval time.Duration, logger *xlogger.Logger) *Scheduler {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Scheduler{
		pipeline: pipeline,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the tick loop. Errors if already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.loop(ctx, s.stopCh, s.doneCh)
	s.logger.Info("scheduler started", xlogger.Duration("interval", s.interval))
	return nil
}

// Stop halts the loop. Safe to call while a tick is in flight: it waits for
// the tick to finish so no partial state is ever left behind.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	done := s.doneCh
	s.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
	s.logger.Info("scheduler stopped")
	return nil
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SkippedTicks returns how many due ticks were skipped because the previous
// tick was still executing.
func (s *Scheduler) SkippedTicks() int64 {
	return s.skipped.Load()
}

func (s *Scheduler) loop(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			s.ticks.Wait()
			return
		case <-ctx.Done():
			s.ticks.Wait()
			return
		case <-ticker.C:
			s.fire(ctx)
		}
	}
}

// fire runs the tick on its own goroutine so the loop stays free to observe
// the next tick becoming due. The CAS drops a due tick while one is still
// executing; a slow tick therefore skips ticks instead of queueing them.
func (s *Scheduler) fire(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.logger.Warn("tick still in flight, skipping")
		return
	}

	s.ticks.Add(1)
	go func() {
		defer s.ticks.Done()
		defer s.inFlight.Store(false)
		// Tick failures are recorded in pipeline state; the loop keeps going.
		_ = s.pipeline.Tick(ctx)
	}()
}
