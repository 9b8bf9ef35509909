package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"Predictelligence/internal/domain/models"
	"Predictelligence/internal/domain/repository"
)

// PredictionsSchema returns the statements creating the durable ledger
// table. Ordered by (subject_key, ts) so per-subject history scans are
// sequential.
func PredictionsSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.predictions (
		ts DateTime64(3),
		subject_key String,
		postcode String,
		property_type LowCardinality(String),
		bedrooms UInt8,
		predicted_value Float64,
		predicted_change_pct Float64,
		direction LowCardinality(String),
		confidence Float64,
		composite_score Float64,
		investment_signal LowCardinality(String),
		boe_rate Float64,
		inflation_rate Float64,
		season LowCardinality(String),
		model_cycles UInt32,
		degraded UInt8
	) ENGINE = MergeTree()
	ORDER BY (subject_key, ts)`, database),
	}
}

// ClickHouseLedger is the durable archive for prediction records. Writes go
// through the async ledger pipeline, never the request path.
type ClickHouseLedger struct {
	db    *sql.DB
	table string
}

var _ repository.HistoryArchive = (*ClickHouseLedger)(nil)

func NewClickHouseLedger(db *sql.DB, table string) *ClickHouseLedger {
	if table == "" {
		table = "predictions"
	}
	return &ClickHouseLedger{db: db, table: table}
}

func (l *ClickHouseLedger) Store(ctx context.Context, rec *models.PredictionRecord) error {
	q := fmt.Sprintf(`INSERT INTO %s (ts, subject_key, postcode, property_type, bedrooms,
		predicted_value, predicted_change_pct, direction, confidence, composite_score,
		investment_signal, boe_rate, inflation_rate, season, model_cycles, degraded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, l.table)
	degraded := uint8(0)
	if rec.Degraded {
		degraded = 1
	}
	_, err := l.db.ExecContext(ctx, q,
		rec.Timestamp,
		rec.SubjectKey,
		rec.Postcode,
		rec.PropertyType,
		uint8(rec.Bedrooms),
		rec.PredictedValue,
		rec.PredictedChangePct,
		string(rec.Direction),
		rec.Confidence,
		rec.CompositeScore,
		string(rec.InvestmentSignal),
		rec.MacroSignals.BoeRate,
		rec.MacroSignals.InflationRate,
		rec.MacroSignals.Season,
		uint32(rec.Cycle),
		degraded,
	)
	return err
}

// Query reads history back from the archive, newest first. The ledger
// pipeline routes history reads here when ClickHouse is the configured
// backend, falling back to the memory ledger on error.
func (l *ClickHouseLedger) Query(ctx context.Context, postcode string, limit int) ([]*models.PredictionRecord, error) {
	q := fmt.Sprintf(`SELECT ts, subject_key, postcode, property_type, bedrooms,
		predicted_value, predicted_change_pct, direction, confidence, composite_score,
		investment_signal, boe_rate, inflation_rate, season, model_cycles, degraded
		FROM %s WHERE postcode = ? ORDER BY ts DESC LIMIT ?`, l.table)
	rows, err := l.db.QueryContext(ctx, q, postcode, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.PredictionRecord
	for rows.Next() {
		var (
			rec       models.PredictionRecord
			ts        time.Time
			direction string
			signal    string
			bedrooms  uint8
			cycles    uint32
			degraded  uint8
		)
		if err := rows.Scan(&ts, &rec.SubjectKey, &rec.Postcode, &rec.PropertyType, &bedrooms,
			&rec.PredictedValue, &rec.PredictedChangePct, &direction, &rec.Confidence, &rec.CompositeScore,
			&signal, &rec.MacroSignals.BoeRate, &rec.MacroSignals.InflationRate, &rec.MacroSignals.Season,
			&cycles, &degraded); err != nil {
			return nil, err
		}
		rec.Timestamp = ts
		rec.Direction = models.Direction(direction)
		rec.InvestmentSignal = models.Signal(signal)
		rec.Bedrooms = int(bedrooms)
		rec.Cycle = int(cycles)
		rec.Degraded = degraded == 1
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (l *ClickHouseLedger) Health(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

func (l *ClickHouseLedger) Close() error {
	return nil // connection owned by pkg/clickhouse
}
