package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"Predictelligence/internal/domain/models"
)

func record(postcode string, ts time.Time) *models.PredictionRecord {
	return &models.PredictionRecord{
		SubjectKey:     postcode + "|terraced|3",
		Postcode:       postcode,
		PropertyType:   "terraced",
		Bedrooms:       3,
		PredictedValue: 285000,
		Direction:      models.DirectionUp,
		Timestamp:      ts,
	}
}

func TestMemoryLedgerQueryNewestFirst(t *testing.T) {
	l := NewMemoryLedger(10)
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 5; i++ {
		if err := l.Append(ctx, record("SW1A1AA", base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	recs, err := l.Query(ctx, "SW1A1AA", 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(recs) != 5 {
		t.Fatalf("expected 5 records, got %d", len(recs))
	}
	for i := 1; i < len(recs); i++ {
		if recs[i].Timestamp.After(recs[i-1].Timestamp) {
			t.Fatalf("not newest-first at %d", i)
		}
	}
}

func TestMemoryLedgerRespectsLimit(t *testing.T) {
	l := NewMemoryLedger(10)
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 8; i++ {
		if err := l.Append(ctx, record("M11AE", base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	recs, err := l.Query(ctx, "M11AE", 3)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("limit not respected: %d", len(recs))
	}
	// Newest record first.
	if !recs[0].Timestamp.Equal(base.Add(7 * time.Second)) {
		t.Fatalf("wrong head record: %v", recs[0].Timestamp)
	}
}

func TestMemoryLedgerBoundedCapacity(t *testing.T) {
	l := NewMemoryLedger(4)
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 10; i++ {
		if err := l.Append(ctx, record("B11AA", base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	recs, err := l.Query(ctx, "B11AA", 100)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(recs) != 4 {
		t.Fatalf("capacity not enforced: %d", len(recs))
	}
	// Oldest retained record is the 7th append.
	last := recs[len(recs)-1]
	if !last.Timestamp.Equal(base.Add(6 * time.Second)) {
		t.Fatalf("wrong eviction order: %v", last.Timestamp)
	}
}

func TestMemoryLedgerIsolatesPostcodes(t *testing.T) {
	l := NewMemoryLedger(10)
	ctx := context.Background()
	now := time.Now()

	for i, pc := range []string{"SW1A1AA", "EC1A1BB", "SW1A1AA"} {
		if err := l.Append(ctx, record(pc, now.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	recs, err := l.Query(ctx, "EC1A1BB", 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record for EC1A1BB, got %d", len(recs))
	}
}

func TestMemoryLedgerRejectsInvalid(t *testing.T) {
	l := NewMemoryLedger(10)
	ctx := context.Background()

	if err := l.Append(ctx, nil); err == nil {
		t.Fatalf("nil record must error")
	}
	if err := l.Append(ctx, &models.PredictionRecord{Timestamp: time.Now()}); err == nil {
		t.Fatalf("empty postcode must error")
	}
}

func TestMemoryLedgerUnknownPostcode(t *testing.T) {
	l := NewMemoryLedger(10)
	recs, err := l.Query(context.Background(), "ZZ99ZZ", 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected empty result, got %d", len(recs))
	}
}

func TestMemoryLedgerConcurrentAppends(t *testing.T) {
	l := NewMemoryLedger(1000)
	ctx := context.Background()

	done := make(chan error, 4)
	for g := 0; g < 4; g++ {
		go func(g int) {
			var err error
			for i := 0; i < 50; i++ {
				pc := fmt.Sprintf("LS1%dAA", g)
				if e := l.Append(ctx, record(pc, time.Now())); e != nil {
					err = e
					break
				}
			}
			done <- err
		}(g)
	}
	for g := 0; g < 4; g++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent append: %v", err)
		}
	}

	for g := 0; g < 4; g++ {
		recs, err := l.Query(ctx, fmt.Sprintf("LS1%dAA", g), 100)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if len(recs) != 50 {
			t.Fatalf("lost appends: %d", len(recs))
		}
	}
}
