package usecase

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"Predictelligence/internal/domain/models"
	domrepo "Predictelligence/internal/domain/repository"
	"Predictelligence/internal/service/macro"
	xlogger "Predictelligence/pkg/logger"
)

// warmupCycles is the number of training cycles before forecasts are
// surfaced to clients.
const warmupCycles = 3

// confidenceFor is the documented ramp: 70 at zero cycles, +5 per cycle,
// capped at 95.
func confidenceFor(cycleCount int) float64 {
	return math.Min(95, 70+5*float64(cycleCount))
}

// trainingRotation is the set of representative UK properties the background
// cycles train against, one per tick, round-robin. Mixed regions, price
// bands and buyer profiles keep the feature distribution varied.
var trainingRotation = []models.Subject{
	{Postcode: "SW1A1AA", PropertyType: "flat", Bedrooms: 2, CurrentValuation: 450000, UserType: models.UserInvestor},
	{Postcode: "EC1A1BB", PropertyType: "flat", Bedrooms: 1, CurrentValuation: 320000, UserType: models.UserFirstTimeBuyer},
	{Postcode: "M11AE", PropertyType: "terraced", Bedrooms: 2, CurrentValuation: 195000, UserType: models.UserHomeMover},
	{Postcode: "LS11AA", PropertyType: "semi_detached", Bedrooms: 3, CurrentValuation: 250000, UserType: models.UserInvestor},
	{Postcode: "B11AA", PropertyType: "terraced", Bedrooms: 3, CurrentValuation: 175000, UserType: models.UserInvestor},
	{Postcode: "EH11BB", PropertyType: "flat", Bedrooms: 2, CurrentValuation: 220000, UserType: models.UserInvestor},
	{Postcode: "CF101AA", PropertyType: "terraced", Bedrooms: 2, CurrentValuation: 160000, UserType: models.UserFirstTimeBuyer},
	{Postcode: "BS11AA", PropertyType: "semi_detached", Bedrooms: 3, CurrentValuation: 280000, UserType: models.UserHomeMover},
}

// Pipeline owns the shared PipelineState and sequences the per-cycle stages:
// fetch → features → model update → ledger append → atomic publish. The
// state pointer has a single writer (Tick, serialized) and any number of
// concurrent readers (Predict, Health).
type Pipeline struct {
	source  domrepo.MacroSource
	feats   *FeatureEngineer
	model   *OnlineModel
	signals *SignalDeriver
	ledger  domrepo.Ledger
	metrics domrepo.Metrics
	logger  *xlogger.Logger

	state  atomic.Pointer[models.PipelineState]
	tickMu sync.Mutex
	rotIdx int
	now    func() time.Time
}

func NewPipeline(
	source domrepo.MacroSource,
	feats *FeatureEngineer,
	model *OnlineModel,
	signals *SignalDeriver,
	ledger domrepo.Ledger,
	metrics domrepo.Metrics,
	logger *xlogger.Logger,
) *Pipeline {
	p := &Pipeline{
		source:  source,
		feats:   feats,
		model:   model,
		signals: signals,
		ledger:  ledger,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
	p.state.Store(&models.PipelineState{
		Model:      model.State(),
		Confidence: confidenceFor(0),
	})
	return p
}

// State returns the current published state. Readers use the returned value
// for the whole of one request and are unaffected by a concurrent publish.
func (p *Pipeline) State() *models.PipelineState {
	return p.state.Load()
}

// Tick runs one training cycle against the configured macro source.
func (p *Pipeline) Tick(ctx context.Context) error {
	return p.tick(ctx, p.source)
}

// WarmUp replays the embedded historical macro quarters through the normal
// tick path so the model is past warm-up before live traffic arrives. No
// network calls are made.
func (p *Pipeline) WarmUp(ctx context.Context) error {
	hist := macro.NewHistorySource()
	for i := 0; i < macro.HistoryLen; i++ {
		if err := p.tick(ctx, hist); err != nil {
			return fmt.Errorf("warm-up cycle %d: %w", i+1, err)
		}
	}
	st := p.state.Load()
	p.logger.Info("warm-up complete",
		xlogger.Int("cycles", st.CycleCount),
		xlogger.Float64("confidence", st.Confidence),
	)
	return nil
}

func (p *Pipeline) tick(ctx context.Context, source domrepo.MacroSource) error {
	p.tickMu.Lock()
	defer p.tickMu.Unlock()

	start := p.now()
	prev := p.state.Load()

	snap, err := source.Fetch(ctx)
	if err != nil {
		p.failTick(prev, fmt.Errorf("macro fetch: %w", err))
		return fmt.Errorf("macro fetch: %w", err)
	}

	if snap.Degraded {
		p.metrics.RecordDegradedFetch()
	}

	subject := trainingRotation[p.rotIdx%len(trainingRotation)]
	p.rotIdx++

	features := p.feats.Derive(snap, subject)

	// Surrogate training label: the market-implied subject value,
	// uk_avg_price × price_to_market. No realized future price exists at
	// fit time, so confidence measures training volume rather than
	// held-out accuracy.
	target := snap.UKAvgPrice * p.feats.PriceToMarket(snap, subject)
	if err := p.model.Update(features, target); err != nil {
		p.failTick(prev, fmt.Errorf("model update: %w", err))
		return fmt.Errorf("model update: %w", err)
	}

	cycle := prev.CycleCount + 1
	next := &models.PipelineState{
		Snapshot:       snap,
		Model:          p.model.State(),
		CycleCount:     cycle,
		Confidence:     confidenceFor(cycle),
		WarmupComplete: cycle >= warmupCycles,
		LastRunAt:      p.now().UTC(),
	}

	if rec := p.cycleRecord(next, subject, features); rec != nil {
		p.metrics.RecordPredictedPrice(subject.PropertyType, rec.PredictedValue)
		if err := p.ledger.Append(ctx, rec); err != nil {
			// Ledger failures never fail the cycle.
			next.LastError = fmt.Sprintf("ledger append: %v", err)
			p.metrics.RecordError("ledger_append")
			p.logger.Warn("cycle ledger append failed", xlogger.Error(err))
		}
	}

	p.state.Store(next)

	p.metrics.RecordCycle("ok")
	p.metrics.RecordConfidence(next.Confidence)
	p.metrics.RecordModelCycles(next.Model.CycleCount)
	p.metrics.RecordLatency("tick", p.now().Sub(start).Seconds())

	p.logger.Debug("cycle complete",
		xlogger.Int("cycle", cycle),
		xlogger.Float64("confidence", next.Confidence),
		xlogger.Bool("warmup_complete", next.WarmupComplete),
		xlogger.Bool("degraded", snap.Degraded),
	)
	return nil
}

// failTick publishes the previous state with last_error set; counters and
// model weights are untouched, so a failed cycle is skipped, never partially
// applied.
func (p *Pipeline) failTick(prev *models.PipelineState, err error) {
	next := *prev
	next.LastError = err.Error()
	next.LastRunAt = p.now().UTC()
	p.state.Store(&next)
	p.metrics.RecordCycle("failed")
	p.metrics.RecordError("tick")
	p.logger.Error("cycle failed", xlogger.Error(err))
}

// cycleRecord builds the ledger entry for a completed training cycle: the
// model's own view of the training subject after the update. Nil while
// warming up.
func (p *Pipeline) cycleRecord(st *models.PipelineState, subject models.Subject, features models.FeatureVector) *models.PredictionRecord {
	if !st.WarmupComplete {
		return nil
	}
	value, changePct := p.forecast(st, subject, features)
	res := p.signals.Derive(changePct, st, subject)
	return &models.PredictionRecord{
		SubjectKey:         subject.Key(),
		Postcode:           models.NormalizePostcode(subject.Postcode),
		PropertyType:       subject.PropertyType,
		Bedrooms:           subject.Bedrooms,
		PredictedValue:     value,
		PredictedChangePct: changePct,
		Direction:          res.Direction,
		Confidence:         st.Confidence,
		CompositeScore:     res.CompositeScore,
		InvestmentSignal:   res.InvestmentSignal,
		MacroSignals:       st.Snapshot.Signals(),
		Cycle:              st.CycleCount,
		Degraded:           st.Snapshot.Degraded,
		Timestamp:          p.now().UTC(),
	}
}

// forecast evaluates the state's model copy for a subject and returns the
// clamped value plus the percentage change against the subject valuation.
func (p *Pipeline) forecast(st *models.PipelineState, subject models.Subject, features models.FeatureVector) (value, changePct float64) {
	anchor := st.Snapshot.UKAvgPrice * p.feats.PriceToMarket(st.Snapshot, subject)
	value = ClampPrediction(PredictWith(st.Model, features), anchor)
	value = math.Round(value)
	if subject.CurrentValuation > 0 {
		changePct = math.Round((value/subject.CurrentValuation-1)*100*100) / 100
	}
	return value, changePct
}

// Predict serves one forecast request against the current published state.
// It never returns an application error: while warming up the response says
// so, and ledger failures are absorbed.
func (p *Pipeline) Predict(ctx context.Context, subject models.Subject) *models.PredictResponse {
	start := p.now()
	st := p.state.Load()

	resp := &models.PredictResponse{
		Postcode:    models.NormalizePostcode(subject.Postcode),
		Confidence:  st.Confidence,
		ModelCycles: st.CycleCount,
		Timestamp:   p.now().UTC(),
	}

	if !st.WarmupComplete {
		resp.WarmingUp = true
		return resp
	}

	features := p.feats.Derive(st.Snapshot, subject)
	value, changePct := p.forecast(st, subject, features)
	res := p.signals.Derive(changePct, st, subject)

	sig := st.Snapshot.Signals()
	resp.ModelReady = true
	resp.Direction = res.Direction
	resp.PredictedValue = &value
	resp.PredictedChangePct = &changePct
	resp.CompositeScore = &res.CompositeScore
	resp.InvestmentSignal = res.InvestmentSignal
	resp.UserInsights = &res.Insights
	resp.MacroSignals = &sig

	rec := &models.PredictionRecord{
		SubjectKey:         subject.Key(),
		Postcode:           resp.Postcode,
		PropertyType:       subject.PropertyType,
		Bedrooms:           subject.Bedrooms,
		PredictedValue:     value,
		PredictedChangePct: changePct,
		Direction:          res.Direction,
		Confidence:         st.Confidence,
		CompositeScore:     res.CompositeScore,
		InvestmentSignal:   res.InvestmentSignal,
		MacroSignals:       sig,
		Cycle:              st.CycleCount,
		Degraded:           st.Snapshot.Degraded,
		Timestamp:          resp.Timestamp,
	}
	if err := p.ledger.Append(ctx, rec); err != nil {
		p.metrics.RecordError("ledger_append")
		p.logger.Warn("prediction ledger append failed", xlogger.Error(err))
	}

	p.metrics.RecordSignal(string(res.InvestmentSignal))
	p.metrics.RecordPredictedPrice(subject.PropertyType, value)
	p.metrics.RecordLatency("predict", p.now().Sub(start).Seconds())
	return resp
}

// History returns the most recent ledger entries for a postcode, newest
// first, at most limit entries.
func (p *Pipeline) History(ctx context.Context, postcode string, limit int) ([]*models.PredictionRecord, error) {
	return p.ledger.Query(ctx, models.NormalizePostcode(postcode), limit)
}

// Health reports the engine health contract.
func (p *Pipeline) Health() models.HealthStatus {
	st := p.state.Load()
	return models.HealthStatus{
		CycleCount:     st.CycleCount,
		WarmupComplete: st.WarmupComplete,
		Confidence:     st.Confidence,
		LastRunAt:      st.LastRunAt,
		LastError:      st.LastError,
	}
}
