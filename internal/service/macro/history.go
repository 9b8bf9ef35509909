package macro

import (
	"context"
	"sync"
	"time"

	"Predictelligence/internal/domain/models"
)

// historicalQuarter is one embedded UK macro reading. The sequence covers
// 2023 Q2 through 2025 Q1 and is used to warm the model without network
// calls.
type historicalQuarter struct {
	boeRate      float64
	inflation    float64
	avgTemp      float64
	seasonFactor float64
	ukAvgPrice   float64
	season       string
}

var historicalQuarters = []historicalQuarter{
	{5.25, 4.6, 15.0, 1.0, 285000, "Spring"},
	{5.25, 3.9, 19.0, 1.0, 288000, "Summer"},
	{5.25, 3.2, 9.0, 0.8, 282000, "Autumn"},
	{5.25, 2.8, 4.0, 0.6, 278000, "Winter"},
	{5.00, 2.3, 13.0, 1.0, 281000, "Spring"},
	{4.75, 2.0, 20.0, 1.0, 284000, "Summer"},
	{4.75, 2.3, 8.0, 0.8, 287000, "Autumn"},
	{4.50, 3.8, 5.0, 0.6, 285000, "Winter"},
}

// HistoryLen is the number of embedded historical readings.
const HistoryLen = 8

// HistorySource replays the embedded historical quarters in order, wrapping
// around. It maintains the same momentum and rolling-mean bookkeeping as the
// live client so warm-up features look like production features.
type HistorySource struct {
	mu            sync.Mutex
	idx           int
	prevBoeRate   float64
	prevInflation float64
	havePrev      bool
	boeHistory    []float64
}

func NewHistorySource() *HistorySource {
	return &HistorySource{}
}

func (h *HistorySource) Fetch(ctx context.Context) (*models.MacroSnapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	q := historicalQuarters[h.idx%len(historicalQuarters)]
	h.idx++

	snap := &models.MacroSnapshot{
		BoeRate:        q.boeRate,
		BoeDirection:   models.RateHolding,
		InflationRate:  q.inflation,
		InflationTrend: inflationTrend(q.inflation),
		AvgTemp:        q.avgTemp,
		Season:         q.season,
		SeasonFactor:   q.seasonFactor,
		UKAvgPrice:     q.ukAvgPrice,
		Affordability:  affordabilityOf(q.boeRate),
		FetchedAt:      time.Now().UTC(),
	}
	if h.havePrev {
		snap.BoeDirection = rateDirection(q.boeRate, h.prevBoeRate)
		snap.InflationMomentum = q.inflation - h.prevInflation
	}
	h.prevBoeRate = q.boeRate
	h.prevInflation = q.inflation
	h.havePrev = true

	h.boeHistory = append(h.boeHistory, q.boeRate)
	if len(h.boeHistory) > rollingWindow {
		h.boeHistory = h.boeHistory[len(h.boeHistory)-rollingWindow:]
	}
	snap.RollingBoeMean = mean(h.boeHistory)

	return snap, nil
}
