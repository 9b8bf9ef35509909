package repository

import (
	"context"

	"Predictelligence/internal/domain/models"
)

// MacroSource fetches the current macro snapshot. The production
// implementation never returns an error: it degrades to the last known-good
// snapshot (or conservative defaults) instead. The error return exists so the
// pipeline's tick-failure path is exercisable with an injected source.
type MacroSource interface {
	Fetch(ctx context.Context) (*models.MacroSnapshot, error)
}

// Ledger is the append-only prediction history store. Append must be cheap
// and must never fail the caller's request path; Query returns records for a
// postcode, most recent first, at most limit entries.
type Ledger interface {
	Append(ctx context.Context, rec *models.PredictionRecord) error
	Query(ctx context.Context, postcode string, limit int) ([]*models.PredictionRecord, error)
}

// Archive is a durable sink that mirrors ledger appends (ClickHouse, Kafka).
// Writes happen off the request path and may fail without consequence beyond
// a metric and a log line.
type Archive interface {
	Store(ctx context.Context, rec *models.PredictionRecord) error
	Health(ctx context.Context) error
	Close() error
}

// HistoryArchive is an Archive that can also serve history reads, making it
// usable as the source of record for the history endpoint.
type HistoryArchive interface {
	Archive
	Query(ctx context.Context, postcode string, limit int) ([]*models.PredictionRecord, error)
}

// Metrics records operational measurements.
type Metrics interface {
	RecordCycle(status string)
	RecordError(kind string)
	RecordSignal(signal string)
	RecordConfidence(v float64)
	RecordModelCycles(n int)
	RecordLatency(op string, seconds float64)
	RecordPredictedPrice(propertyType string, price float64)
	RecordDegradedFetch()
}
