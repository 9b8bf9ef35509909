package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"Predictelligence/internal/domain/models"
	domrepo "Predictelligence/internal/domain/repository"
)

// LedgerPipeline sits between the prediction pipeline and storage. The
// in-memory ledger is written synchronously (cheap, bounded); durable sinks
// (ClickHouse, Kafka) receive records through a bounded buffer flushed by a
// background goroutine with backoff. A full buffer drops the record with a
// metric, so the prediction path is never blocked by slow storage.
type LedgerPipeline struct {
	memory   domrepo.Ledger
	archives []domrepo.Archive
	history  domrepo.HistoryArchive
	metrics  domrepo.Metrics

	bufSize int
	bufCh   chan *models.PredictionRecord
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
}

type Option func(*LedgerPipeline)

// WithBufferSize sets the archive fan-out buffer size.
func WithBufferSize(n int) Option {
	return func(p *LedgerPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithArchive adds a durable sink.
func WithArchive(a domrepo.Archive) Option {
	return func(p *LedgerPipeline) {
		if a != nil {
			p.archives = append(p.archives, a)
		}
	}
}

// WithHistorySource adds a durable sink that also becomes the source of
// record for history reads. The memory ledger remains the fallback.
func WithHistorySource(h domrepo.HistoryArchive) Option {
	return func(p *LedgerPipeline) {
		if h != nil {
			p.archives = append(p.archives, h)
			p.history = h
		}
	}
}

// NewLedgerPipeline wraps the memory ledger with async archive fan-out.
func NewLedgerPipeline(memory domrepo.Ledger, metrics domrepo.Metrics, opts ...Option) *LedgerPipeline {
	p := &LedgerPipeline{
		memory:  memory,
		metrics: metrics,
		bufSize: 1000,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.PredictionRecord, p.bufSize)
	return p
}

// Start launches background flushing to the archives. No-op without sinks.
func (p *LedgerPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || len(p.archives) == 0 {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case rec := <-p.bufCh:
				if rec == nil {
					continue
				}
				if err := p.flush(ctx, rec); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("ledger_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- rec:
					default:
						p.metrics.RecordError("ledger_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop halts background flushing. Buffered records are discarded.
func (p *LedgerPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)

	for _, a := range p.archives {
		_ = a.Close()
	}
}

// Append validates, writes the memory ledger, and enqueues the record for
// the durable sinks. Only the memory write can fail the call.
func (p *LedgerPipeline) Append(ctx context.Context, rec *models.PredictionRecord) error {
	if err := validateRecord(rec); err != nil {
		p.metrics.RecordError("ledger_validate")
		return err
	}
	if err := p.memory.Append(ctx, rec); err != nil {
		return fmt.Errorf("memory ledger: %w", err)
	}

	if len(p.archives) > 0 {
		select {
		case p.bufCh <- rec:
		default:
			p.metrics.RecordError("ledger_buffer_full")
		}
	}
	return nil
}

// Query serves history from the durable backend when one is configured as
// the history source, falling back to the memory ledger on error.
func (p *LedgerPipeline) Query(ctx context.Context, postcode string, limit int) ([]*models.PredictionRecord, error) {
	if p.history != nil {
		recs, err := p.history.Query(ctx, postcode, limit)
		if err == nil {
			return recs, nil
		}
		p.metrics.RecordError("ledger_history")
	}
	return p.memory.Query(ctx, postcode, limit)
}

func (p *LedgerPipeline) flush(ctx context.Context, rec *models.PredictionRecord) error {
	var firstErr error
	for _, a := range p.archives {
		if err := a.Store(ctx, rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func validateRecord(rec *models.PredictionRecord) error {
	if rec == nil {
		return fmt.Errorf("record nil")
	}
	if rec.SubjectKey == "" {
		return fmt.Errorf("subject key empty")
	}
	if rec.Timestamp.IsZero() {
		return fmt.Errorf("timestamp zero")
	}
	if rec.PredictedValue < 0 {
		return fmt.Errorf("negative predicted value")
	}
	return nil
}
