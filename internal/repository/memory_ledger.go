package repository

import (
	"context"
	"fmt"
	"sync"

	"Predictelligence/internal/domain/models"
)

// MemoryLedger is the in-process prediction history store. Records are kept
// per postcode in a bounded ring; appends are O(1) and never touch slow
// storage, so the prediction path cannot stall here.
type MemoryLedger struct {
	mu       sync.RWMutex
	capacity int
	byPC     map[string][]*models.PredictionRecord
}

// NewMemoryLedger creates a ledger retaining at most capacity records per
// postcode.
func NewMemoryLedger(capacity int) *MemoryLedger {
	if capacity <= 0 {
		capacity = 500
	}
	return &MemoryLedger{
		capacity: capacity,
		byPC:     make(map[string][]*models.PredictionRecord),
	}
}

func (l *MemoryLedger) Append(ctx context.Context, rec *models.PredictionRecord) error {
	if rec == nil {
		return fmt.Errorf("record nil")
	}
	if rec.Postcode == "" {
		return fmt.Errorf("postcode empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	recs := append(l.byPC[rec.Postcode], rec)
	if len(recs) > l.capacity {
		recs = recs[len(recs)-l.capacity:]
	}
	l.byPC[rec.Postcode] = recs
	return nil
}

// Query returns records for a postcode, newest first, at most limit entries.
// Appends happen in timestamp order, so reversing the slice yields
// non-increasing timestamps.
func (l *MemoryLedger) Query(ctx context.Context, postcode string, limit int) ([]*models.PredictionRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	recs := l.byPC[postcode]
	n := len(recs)
	if n == 0 {
		return []*models.PredictionRecord{}, nil
	}
	if limit > n {
		limit = n
	}
	out := make([]*models.PredictionRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, recs[i])
	}
	return out, nil
}
