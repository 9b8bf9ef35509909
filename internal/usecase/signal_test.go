package usecase

import (
	"testing"

	"Predictelligence/internal/domain/models"
)

func TestSignalForBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  models.Signal
	}{
		{0.65, models.SignalBuy},
		{0.66, models.SignalBuy},
		{0.45, models.SignalHold},
		{0.64999, models.SignalHold},
		{0.44999, models.SignalSell},
		{0.0, models.SignalSell},
		{1.0, models.SignalBuy},
	}
	for _, c := range cases {
		if got := SignalFor(c.score); got != c.want {
			t.Fatalf("SignalFor(%v) = %v, want %v", c.score, got, c.want)
		}
	}
}

func TestDirectionForSign(t *testing.T) {
	if got := DirectionFor(0.01); got != models.DirectionUp {
		t.Fatalf("positive change: %v", got)
	}
	if got := DirectionFor(-0.01); got != models.DirectionDown {
		t.Fatalf("negative change: %v", got)
	}
	if got := DirectionFor(0); got != models.DirectionSideways {
		t.Fatalf("zero change must be SIDEWAYS: %v", got)
	}
}

func signalState() *models.PipelineState {
	return &models.PipelineState{
		Snapshot:       testSnapshot(),
		CycleCount:     5,
		Confidence:     95,
		WarmupComplete: true,
	}
}

func TestDeriveCompositeInRange(t *testing.T) {
	d := NewSignalDeriver()
	for _, pct := range []float64{-20, -5, 0, 3, 12, 50} {
		res := d.Derive(pct, signalState(), testSubject())
		if res.CompositeScore < 0 || res.CompositeScore > 1 {
			t.Fatalf("composite out of range for pct=%v: %v", pct, res.CompositeScore)
		}
	}
}

func TestDeriveDirectionMatchesChange(t *testing.T) {
	d := NewSignalDeriver()
	if res := d.Derive(2.5, signalState(), testSubject()); res.Direction != models.DirectionUp {
		t.Fatalf("expected UP, got %v", res.Direction)
	}
	if res := d.Derive(-2.5, signalState(), testSubject()); res.Direction != models.DirectionDown {
		t.Fatalf("expected DOWN, got %v", res.Direction)
	}
	if res := d.Derive(0, signalState(), testSubject()); res.Direction != models.DirectionSideways {
		t.Fatalf("expected SIDEWAYS, got %v", res.Direction)
	}
}

func TestDeriveHigherGrowthScoresHigher(t *testing.T) {
	d := NewSignalDeriver()
	low := d.Derive(0.5, signalState(), testSubject())
	high := d.Derive(8.0, signalState(), testSubject())
	if high.CompositeScore <= low.CompositeScore {
		t.Fatalf("growth should raise composite: %v vs %v", high.CompositeScore, low.CompositeScore)
	}
}

func TestInvestorInsights(t *testing.T) {
	d := NewSignalDeriver()
	sub := testSubject()
	sub.UserType = models.UserInvestor

	res := d.Derive(3.0, signalState(), sub)
	if res.Insights.Headline == "" {
		t.Fatalf("missing headline")
	}
	if res.Insights.ROIEstimate == nil {
		t.Fatalf("investor insights must carry roi_estimate")
	}
	if *res.Insights.ROIEstimate != 7.5 {
		t.Fatalf("roi: predicted 3.0 + 4.5 yield = 7.5, got %v", *res.Insights.ROIEstimate)
	}
	if res.Insights.HoldPeriodSuggestion == "" {
		t.Fatalf("missing hold period")
	}
	if res.Insights.AffordabilityOutlook != "" {
		t.Fatalf("investor insights must not carry buyer fields")
	}
}

func TestFirstTimeBuyerInsights(t *testing.T) {
	d := NewSignalDeriver()
	sub := testSubject()
	sub.UserType = models.UserFirstTimeBuyer

	res := d.Derive(1.0, signalState(), sub)
	if res.Insights.AffordabilityOutlook == "" {
		t.Fatalf("missing affordability outlook")
	}
	if res.Insights.BestTimeToBuy == "" {
		t.Fatalf("missing best time to buy")
	}
	if res.Insights.ROIEstimate != nil {
		t.Fatalf("buyer insights must not carry roi_estimate")
	}
}

func TestHomeMoverInsights(t *testing.T) {
	d := NewSignalDeriver()
	sub := testSubject()
	sub.UserType = models.UserHomeMover

	res := d.Derive(-1.0, signalState(), sub)
	if res.Insights.MarketTiming == "" {
		t.Fatalf("missing market timing")
	}
	if res.Insights.NegotiationContext == "" {
		t.Fatalf("missing negotiation context")
	}
}

func TestUnknownProfileFallsBackToInvestor(t *testing.T) {
	d := NewSignalDeriver()
	sub := testSubject()
	sub.UserType = "landlord"

	res := d.Derive(2.0, signalState(), sub)
	if res.Insights.ROIEstimate == nil {
		t.Fatalf("unknown profile should get investor insights")
	}
}

func TestDeriveDeterministicInsights(t *testing.T) {
	d := NewSignalDeriver()
	a := d.Derive(2.0, signalState(), testSubject())
	b := d.Derive(2.0, signalState(), testSubject())
	if a.Insights.Headline != b.Insights.Headline || a.CompositeScore != b.CompositeScore {
		t.Fatalf("insights must be deterministic")
	}
}
