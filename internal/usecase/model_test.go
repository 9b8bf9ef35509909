package usecase

import (
	"math"
	"testing"

	"Predictelligence/internal/domain/models"
)

func TestUpdateSingleGradientStep(t *testing.T) {
	m := NewOnlineModel(0.01, 0)

	var f models.FeatureVector
	f[0] = 1.0
	target := 285000.0 // 2.85 price units

	if err := m.Update(f, target); err != nil {
		t.Fatalf("update: %v", err)
	}

	// From zero weights: predicted = 0, error = -2.85,
	// w0 = 0 - 0.01·(-2.85·1) = 0.0285, bias likewise.
	st := m.State()
	if math.Abs(st.Weights[0]-0.0285) > 1e-9 {
		t.Fatalf("unexpected w0 %v", st.Weights[0])
	}
	if math.Abs(st.Bias-0.0285) > 1e-9 {
		t.Fatalf("unexpected bias %v", st.Bias)
	}
	if st.CycleCount != 1 {
		t.Fatalf("expected cycle 1, got %d", st.CycleCount)
	}
}

func TestUpdateAppliesL2Penalty(t *testing.T) {
	m := NewOnlineModel(0.1, 0.5)
	var f models.FeatureVector
	if err := m.Update(f, 100000); err != nil {
		t.Fatalf("update: %v", err)
	}
	w1 := m.State().Weights

	// Zero features: the gradient term vanishes, only decay applies.
	// Weights started at zero so they must stay zero.
	for i, w := range w1 {
		if w != 0 {
			t.Fatalf("weight %d moved with zero features: %v", i, w)
		}
	}
	if m.State().Bias == 0 {
		t.Fatalf("bias should move on error alone")
	}
}

func TestUpdateRejectsNonPositiveTarget(t *testing.T) {
	m := NewOnlineModel(0.01, 0)
	var f models.FeatureVector
	if err := m.Update(f, 0); err == nil {
		t.Fatalf("expected error for zero target")
	}
	if m.State().CycleCount != 0 {
		t.Fatalf("failed update must not advance cycles")
	}
}

func TestPredictDoesNotMutate(t *testing.T) {
	m := NewOnlineModel(0.01, 0)
	var f models.FeatureVector
	f[2] = 1.5
	if err := m.Update(f, 285000); err != nil {
		t.Fatalf("update: %v", err)
	}

	before := m.State()
	_ = m.Predict(f)
	_ = m.Predict(f)
	after := m.State()

	if before != after {
		t.Fatalf("predict mutated model state")
	}
}

func TestPredictWithMatchesLivePredict(t *testing.T) {
	m := NewOnlineModel(0.01, 0.0001)
	var f models.FeatureVector
	f[0], f[5] = 0.5, -1.2
	for i := 0; i < 5; i++ {
		if err := m.Update(f, 285000); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	if got, want := PredictWith(m.State(), f), m.Predict(f); got != want {
		t.Fatalf("state-copy predict %v != live predict %v", got, want)
	}
}

func TestClampPrediction(t *testing.T) {
	anchor := 300000.0
	if got := ClampPrediction(1e9, anchor); got != anchor*1.40 {
		t.Fatalf("upper anchor clamp failed: %v", got)
	}
	if got := ClampPrediction(-5, anchor); got != anchor*0.60 {
		t.Fatalf("lower anchor clamp failed: %v", got)
	}
	if got := ClampPrediction(310000, anchor); got != 310000 {
		t.Fatalf("in-band value must pass through: %v", got)
	}
	// Absolute floor wins over a tiny anchor band.
	if got := ClampPrediction(10000, 60000); got != priceFloor {
		t.Fatalf("floor clamp failed: %v", got)
	}
}
