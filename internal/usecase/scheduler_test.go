package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"Predictelligence/internal/domain/models"
	internalrepo "Predictelligence/internal/repository"
)

// slowSource delays every fetch so ticks outlast the scheduler interval.
type slowSource struct {
	delay time.Duration
	mu    sync.Mutex
	calls int
}

func (s *slowSource) Fetch(ctx context.Context) (*models.MacroSnapshot, error) {
	time.Sleep(s.delay)
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return testSnapshot(), nil
}

func TestSchedulerStartStop(t *testing.T) {
	p := newTestPipeline(t, &fakeSource{})
	s := NewScheduler(p, 10*time.Millisecond, newTestLogger(t))
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !s.Running() {
		t.Fatalf("expected running after start")
	}
	if err := s.Start(ctx); err == nil {
		t.Fatalf("second start must error")
	}

	time.Sleep(55 * time.Millisecond)
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if s.Running() {
		t.Fatalf("expected stopped after stop")
	}

	if got := p.State().CycleCount; got == 0 {
		t.Fatalf("scheduler produced no cycles")
	}

	// Stopping again is a no-op.
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("idempotent stop: %v", err)
	}
}

func TestSchedulerStopHaltsTicks(t *testing.T) {
	p := newTestPipeline(t, &fakeSource{})
	s := NewScheduler(p, 5*time.Millisecond, newTestLogger(t))
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	at := p.State().CycleCount
	time.Sleep(30 * time.Millisecond)
	if got := p.State().CycleCount; got != at {
		t.Fatalf("ticks continued after stop: %d -> %d", at, got)
	}
}

func TestSchedulerSkipsOverlappingTicks(t *testing.T) {
	src := &slowSource{delay: 40 * time.Millisecond}
	p := NewPipeline(
		src,
		NewFeatureEngineer(),
		NewOnlineModel(0.01, 0.0001),
		NewSignalDeriver(),
		internalrepo.NewMemoryLedger(100),
		nopMetrics{},
		newTestLogger(t),
	)
	s := NewScheduler(p, 5*time.Millisecond, newTestLogger(t))
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(120 * time.Millisecond)
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if s.SkippedTicks() == 0 {
		t.Fatalf("expected due ticks to be skipped while one was in flight")
	}
	// With a 40ms tick and a 5ms interval only a few ticks can complete.
	if got := p.State().CycleCount; got > 5 {
		t.Fatalf("too many cycles for overlapping schedule: %d", got)
	}
}

func TestSchedulerStopWaitsForInFlightTick(t *testing.T) {
	src := &slowSource{delay: 40 * time.Millisecond}
	p := NewPipeline(
		src,
		NewFeatureEngineer(),
		NewOnlineModel(0.01, 0.0001),
		NewSignalDeriver(),
		internalrepo.NewMemoryLedger(100),
		nopMetrics{},
		newTestLogger(t),
	)
	s := NewScheduler(p, 5*time.Millisecond, newTestLogger(t))
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	// Let a tick get in flight, then stop while it is still executing.
	time.Sleep(10 * time.Millisecond)
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	// Stop must not return mid-tick: once it has, the cycle count is final.
	at := p.State().CycleCount
	time.Sleep(60 * time.Millisecond)
	if got := p.State().CycleCount; got != at {
		t.Fatalf("tick finished after stop returned: %d -> %d", at, got)
	}
}

func TestSchedulerDefaultInterval(t *testing.T) {
	p := newTestPipeline(t, &fakeSource{})
	s := NewScheduler(p, 0, newTestLogger(t))
	if s.interval != 60*time.Second {
		t.Fatalf("default interval = %v, want 60s", s.interval)
	}
}
