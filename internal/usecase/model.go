package usecase

import (
	"fmt"
	"sync"

	"Predictelligence/internal/domain/models"
)

// priceUnit is the internal price scale: model arithmetic runs in units of
// £100k so a single SGD step stays numerically stable against z-scored
// features.
const priceUnit = 100000.0

// Prediction guard rails. Raw model output is anchored within ±40% of the
// training target and an absolute floor/ceiling, preventing cold-start
// divergence before the features have varied.
const (
	anchorBandLow  = 0.60
	anchorBandHigh = 1.40
	priceFloor     = 50000.0
	priceCeiling   = 5000000.0
)

// OnlineModel is an incrementally trained linear regressor. Update is the
// single mutator and is serialized; Predict reads a copy of the weights and
// is safe to call concurrently.
type OnlineModel struct {
	mu    sync.RWMutex
	state models.ModelState
}

func NewOnlineModel(learningRate, l2Penalty float64) *OnlineModel {
	return &OnlineModel{
		state: models.ModelState{
			LearningRate: learningRate,
			L2Penalty:    l2Penalty,
		},
	}
}

// Update performs one stochastic-gradient step against targetPounds:
//
//	error = predicted − target
//	w ← w − lr·(error·f + l2·w)
//	b ← b − lr·error
//
// The realized future price is unknown at fit time, so the caller trains on a
// surrogate label: the market-implied subject value, uk_avg_price ×
// price_to_market. Confidence therefore measures training volume, not
// held-out accuracy.
func (m *OnlineModel) Update(features models.FeatureVector, targetPounds float64) error {
	if targetPounds <= 0 {
		return fmt.Errorf("non-positive training target: %f", targetPounds)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	target := targetPounds / priceUnit
	predicted := dot(m.state.Weights, features) + m.state.Bias
	err := predicted - target

	lr := m.state.LearningRate
	l2 := m.state.L2Penalty
	for i := range m.state.Weights {
		m.state.Weights[i] -= lr * (err*features[i] + l2*m.state.Weights[i])
	}
	m.state.Bias -= lr * err
	m.state.CycleCount++
	return nil
}

// Predict returns the model's point estimate in pounds. Read-only.
func (m *OnlineModel) Predict(features models.FeatureVector) float64 {
	m.mu.RLock()
	st := m.state
	m.mu.RUnlock()
	return PredictWith(st, features)
}

// State returns a copy of the current model parameters for publication.
func (m *OnlineModel) State() models.ModelState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// PredictWith evaluates a published model-state copy. Used by readers so a
// predict call works entirely against one cycle's state.
func PredictWith(st models.ModelState, features models.FeatureVector) float64 {
	return (dot(st.Weights, features) + st.Bias) * priceUnit
}

// ClampPrediction anchors a raw model output within ±40% of anchorPounds and
// the absolute [£50k, £5M] band.
func ClampPrediction(raw, anchorPounds float64) float64 {
	if anchorPounds <= 0 {
		anchorPounds = DefaultAnchorPounds
	}
	v := raw
	if v < anchorPounds*anchorBandLow {
		v = anchorPounds * anchorBandLow
	}
	if v > anchorPounds*anchorBandHigh {
		v = anchorPounds * anchorBandHigh
	}
	if v < priceFloor {
		v = priceFloor
	}
	if v > priceCeiling {
		v = priceCeiling
	}
	return v
}

// DefaultAnchorPounds is the fallback anchor when no market average is known.
const DefaultAnchorPounds = 285000.0

func dot(w, f models.FeatureVector) float64 {
	var sum float64
	for i := range w {
		sum += w[i] * f[i]
	}
	return sum
}
