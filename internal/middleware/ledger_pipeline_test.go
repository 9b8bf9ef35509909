package middleware

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"Predictelligence/internal/domain/models"
	"Predictelligence/internal/repository"
)

// countMetrics records error kinds; everything else is a no-op.
type countMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func newCountMetrics() *countMetrics {
	return &countMetrics{errors: make(map[string]int)}
}

func (m *countMetrics) RecordCycle(string)            {}
func (m *countMetrics) RecordSignal(string)           {}
func (m *countMetrics) RecordConfidence(float64)      {}
func (m *countMetrics) RecordModelCycles(int)         {}
func (m *countMetrics) RecordLatency(string, float64)        {}
func (m *countMetrics) RecordPredictedPrice(string, float64) {}
func (m *countMetrics) RecordDegradedFetch()                 {}

func (m *countMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}

func (m *countMetrics) errorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

// fakeArchive collects stored records and can be told to fail.
type fakeArchive struct {
	mu      sync.Mutex
	stored  []*models.PredictionRecord
	failing bool
	closed  bool
}

func (a *fakeArchive) Store(ctx context.Context, rec *models.PredictionRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failing {
		return fmt.Errorf("sink unavailable")
	}
	a.stored = append(a.stored, rec)
	return nil
}

func (a *fakeArchive) Health(ctx context.Context) error { return nil }

func (a *fakeArchive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

func (a *fakeArchive) setFailing(v bool) {
	a.mu.Lock()
	a.failing = v
	a.mu.Unlock()
}

func (a *fakeArchive) storedCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.stored)
}

// fakeHistoryArchive serves history reads and can be told to fail them.
type fakeHistoryArchive struct {
	fakeArchive
	rows      []*models.PredictionRecord
	queryFail bool
}

func (a *fakeHistoryArchive) Query(ctx context.Context, postcode string, limit int) ([]*models.PredictionRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.queryFail {
		return nil, fmt.Errorf("query unavailable")
	}
	return a.rows, nil
}

func sampleRecord(postcode string) *models.PredictionRecord {
	return &models.PredictionRecord{
		SubjectKey:     postcode + ":terraced:3",
		Postcode:       postcode,
		PropertyType:   "terraced",
		Bedrooms:       3,
		PredictedValue: 285000,
		Timestamp:      time.Now().UTC(),
	}
}

func TestAppendWritesMemoryLedger(t *testing.T) {
	metrics := newCountMetrics()
	p := NewLedgerPipeline(repository.NewMemoryLedger(10), metrics)

	rec := sampleRecord("SW1A1AA")
	if err := p.Append(context.Background(), rec); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := p.Query(context.Background(), "SW1A1AA", 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].SubjectKey != rec.SubjectKey {
		t.Fatalf("query returned %d records, want the appended one", len(got))
	}
}

func TestAppendRejectsInvalidRecords(t *testing.T) {
	metrics := newCountMetrics()
	p := NewLedgerPipeline(repository.NewMemoryLedger(10), metrics)
	ctx := context.Background()

	cases := []*models.PredictionRecord{
		nil,
		{Postcode: "SW1A1AA", Timestamp: time.Now()},                              // empty subject key
		{SubjectKey: "k", Postcode: "SW1A1AA"},                                    // zero timestamp
		{SubjectKey: "k", Postcode: "SW1A1AA", Timestamp: time.Now(), PredictedValue: -1},
	}
	for i, rec := range cases {
		if err := p.Append(ctx, rec); err == nil {
			t.Fatalf("case %d: invalid record accepted", i)
		}
	}
	if metrics.errorCount("ledger_validate") != len(cases) {
		t.Fatalf("ledger_validate errors = %d, want %d", metrics.errorCount("ledger_validate"), len(cases))
	}
}

func TestArchiveFlush(t *testing.T) {
	metrics := newCountMetrics()
	archive := &fakeArchive{}
	p := NewLedgerPipeline(repository.NewMemoryLedger(10), metrics,
		WithArchive(archive), WithBufferSize(16))

	p.Start(context.Background())
	defer p.Stop()

	for i := 0; i < 3; i++ {
		if err := p.Append(context.Background(), sampleRecord("M11AE")); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for archive.storedCount() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("archive received %d records, want 3", archive.storedCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBufferFullDropsWithoutBlocking(t *testing.T) {
	metrics := newCountMetrics()
	archive := &fakeArchive{}
	// Not started: nothing drains the buffer.
	p := NewLedgerPipeline(repository.NewMemoryLedger(100), metrics,
		WithArchive(archive), WithBufferSize(2))

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			if err := p.Append(ctx, sampleRecord("LS11AA")); err != nil {
				t.Errorf("append %d: %v", i, err)
			}
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("append blocked on a full archive buffer")
	}

	if metrics.errorCount("ledger_buffer_full") != 3 {
		t.Fatalf("ledger_buffer_full = %d, want 3", metrics.errorCount("ledger_buffer_full"))
	}

	// Memory ledger still has every record.
	got, err := p.Query(ctx, "LS11AA", 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("memory ledger has %d records, want 5", len(got))
	}
}

func TestFailingArchiveRetries(t *testing.T) {
	metrics := newCountMetrics()
	archive := &fakeArchive{}
	archive.setFailing(true)
	p := NewLedgerPipeline(repository.NewMemoryLedger(10), metrics,
		WithArchive(archive), WithBufferSize(16))

	p.Start(context.Background())
	defer p.Stop()

	if err := p.Append(context.Background(), sampleRecord("B11AA")); err != nil {
		t.Fatalf("append: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for metrics.errorCount("ledger_flush") == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("no flush failure recorded")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Once the sink recovers the requeued record lands.
	archive.setFailing(false)
	deadline = time.Now().Add(3 * time.Second)
	for archive.storedCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("record never reached the recovered archive")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStopClosesArchives(t *testing.T) {
	archive := &fakeArchive{}
	p := NewLedgerPipeline(repository.NewMemoryLedger(10), newCountMetrics(),
		WithArchive(archive))

	p.Start(context.Background())
	p.Stop()
	p.Stop() // idempotent

	archive.mu.Lock()
	closed := archive.closed
	archive.mu.Unlock()
	if !closed {
		t.Fatalf("stop must close the archive")
	}
}

func TestQueryUsesHistorySource(t *testing.T) {
	history := &fakeHistoryArchive{rows: []*models.PredictionRecord{
		sampleRecord("EC1A1BB"),
		sampleRecord("EC1A1BB"),
	}}
	p := NewLedgerPipeline(repository.NewMemoryLedger(10), newCountMetrics(),
		WithHistorySource(history))

	recs, err := p.Query(context.Background(), "EC1A1BB", 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("rows from durable backend = %d, want 2", len(recs))
	}
}

func TestQueryFallsBackToMemoryOnHistoryError(t *testing.T) {
	history := &fakeHistoryArchive{queryFail: true}
	metrics := newCountMetrics()
	p := NewLedgerPipeline(repository.NewMemoryLedger(10), metrics,
		WithHistorySource(history))

	rec := sampleRecord("M11AE")
	if err := p.Append(context.Background(), rec); err != nil {
		t.Fatalf("append: %v", err)
	}

	recs, err := p.Query(context.Background(), "M11AE", 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("fallback rows = %d, want 1", len(recs))
	}
	if metrics.errorCount("ledger_history") == 0 {
		t.Fatalf("history failure must be recorded")
	}
}

func TestHistorySourceAlsoReceivesAppends(t *testing.T) {
	history := &fakeHistoryArchive{}
	p := NewLedgerPipeline(repository.NewMemoryLedger(10), newCountMetrics(),
		WithHistorySource(history))
	p.Start(context.Background())
	defer p.Stop()

	if err := p.Append(context.Background(), sampleRecord("SW1A1AA")); err != nil {
		t.Fatalf("append: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for history.storedCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("record never reached the history archive")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
