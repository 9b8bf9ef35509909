package usecase

import (
	"fmt"
	"math"
	"strings"

	"Predictelligence/internal/domain/models"
)

// Signal thresholds. Boundaries are exact: a composite of 0.65 is a BUY, a
// composite of 0.45 is a HOLD.
const (
	BuyThreshold  = 0.65
	SellThreshold = 0.45
)

// Composite score weights. Fixed constants, sum to 1.
const (
	wDirection     = 0.20
	wGrowth        = 0.15
	wConfidence    = 0.15
	wAffordability = 0.15
	wInflation     = 0.15
	wSeason        = 0.10
	wDiscount      = 0.10
)

// SignalDeriver converts a forecast plus the published pipeline state into a
// composite score, an investment signal, and profile-specific insights. All
// outputs are deterministic functions of the inputs.
type SignalDeriver struct{}

func NewSignalDeriver() *SignalDeriver {
	return &SignalDeriver{}
}

// Derive computes the full signal result for one forecast.
func (d *SignalDeriver) Derive(changePct float64, state *models.PipelineState, subject models.Subject) models.SignalResult {
	snap := state.Snapshot
	direction := DirectionFor(changePct)

	dirScore := 0.5
	switch direction {
	case models.DirectionUp:
		dirScore = 1.0
	case models.DirectionDown:
		dirScore = 0.0
	}

	// 10% predicted growth saturates the growth component.
	growthScore := clamp01(changePct / 10.0)

	// Confidence ramps 70→95; map onto [0,1].
	confScore := clamp01((state.Confidence - 70.0) / 25.0)

	affordabilityScore := clamp01(1.0 - snap.BoeRate/15.0)
	inflationScore := clamp01(1.0 - snap.InflationRate/10.0)
	seasonScore := clamp01(snap.SeasonFactor)

	// Valuation discount against the profile-adjusted market average:
	// a subject priced 50% under comparables scores 1.0.
	discountScore := 0.5
	if comp := comparableValue(snap, subject); comp > 0 && subject.CurrentValuation > 0 {
		discount := (comp - subject.CurrentValuation) / comp
		discountScore = clamp01(discount + 0.5)
	}

	composite := wDirection*dirScore +
		wGrowth*growthScore +
		wConfidence*confScore +
		wAffordability*affordabilityScore +
		wInflation*inflationScore +
		wSeason*seasonScore +
		wDiscount*discountScore
	composite = round4(clamp01(composite))

	signal := SignalFor(composite)

	return models.SignalResult{
		CompositeScore:   composite,
		InvestmentSignal: signal,
		Direction:        direction,
		Insights:         d.buildInsights(signal, direction, changePct, snap, subject),
	}
}

// SignalFor maps a composite score onto the investment signal.
func SignalFor(composite float64) models.Signal {
	switch {
	case composite >= BuyThreshold:
		return models.SignalBuy
	case composite < SellThreshold:
		return models.SignalSell
	default:
		return models.SignalHold
	}
}

// DirectionFor maps a predicted change onto a direction. Exactly zero is
// SIDEWAYS.
func DirectionFor(changePct float64) models.Direction {
	switch {
	case changePct > 0:
		return models.DirectionUp
	case changePct < 0:
		return models.DirectionDown
	default:
		return models.DirectionSideways
	}
}

func comparableValue(snap *models.MacroSnapshot, subject models.Subject) float64 {
	typeWeight, ok := propertyTypeWeights[subject.PropertyType]
	if !ok {
		typeWeight = propertyTypeWeights["terraced"]
	}
	return snap.UKAvgPrice * typeWeight * bedroomScale(subject.Bedrooms)
}

// --- insight templates ---

func (d *SignalDeriver) buildInsights(signal models.Signal, direction models.Direction, pct float64, snap *models.MacroSnapshot, subject models.Subject) models.UserInsights {
	switch subject.UserType {
	case models.UserFirstTimeBuyer:
		return ftbInsights(direction, snap)
	case models.UserHomeMover:
		return moverInsights(signal, direction, snap)
	default:
		return investorInsights(signal, direction, pct, snap)
	}
}

func investorInsights(signal models.Signal, direction models.Direction, pct float64, snap *models.MacroSnapshot) models.UserInsights {
	var headline string
	switch signal {
	case models.SignalBuy:
		headline = fmt.Sprintf("Strong buy opportunity. Model projects %s trend (%s). Macro conditions support entry.", direction, signedPct(pct))
	case models.SignalHold:
		headline = fmt.Sprintf("Hold position. Market trending %s (%s). Monitor for rate changes.", direction, signedPct(pct))
	default:
		headline = fmt.Sprintf("Caution advised. Model projects %s pressure (%.1f%%). Consider timing.", direction, pct)
	}

	roi := math.Round((pct+4.5)*10) / 10 // predicted capital plus typical yield
	hold := "Wait for rate cycle to turn before committing capital."
	if signal == models.SignalBuy {
		hold = "5-7 year hold recommended for optimal capital growth cycle."
	}
	return models.UserInsights{
		Headline:    headline,
		ROIEstimate: &roi,
		RentalYieldContext: fmt.Sprintf(
			"Gross yields typically 4-6%% in this market. BoE rate at %.2f%% — BTL finance costs remain elevated.", snap.BoeRate),
		HoldPeriodSuggestion: hold,
	}
}

func ftbInsights(direction models.Direction, snap *models.MacroSnapshot) models.UserInsights {
	outlook := "Affordability improving as BoE rate eases. Good time to explore mortgage options."
	if snap.BoeRate > 5.0 {
		outlook = fmt.Sprintf(
			"Mortgage affordability under pressure with BoE rate at %.2f%%. Consider fixed-rate products to lock in certainty.", snap.BoeRate)
	}

	var bestTime string
	switch direction {
	case models.DirectionUp:
		bestTime = "Market trending up — acting sooner may save you money."
	case models.DirectionDown:
		bestTime = "Market showing softness — you may be able to negotiate."
	default:
		bestTime = "Market stable — act when personally ready."
	}

	headline := "Stable conditions for first-time buyers."
	if direction == models.DirectionUp {
		headline = "Market trending up — consider acting soon."
	}
	return models.UserInsights{
		Headline:             headline,
		AffordabilityOutlook: outlook,
		BestTimeToBuy:        bestTime,
		StampDutyNote:        "First-time buyer relief may apply — consult a solicitor.",
	}
}

func moverInsights(signal models.Signal, direction models.Direction, snap *models.MacroSnapshot) models.UserInsights {
	var timing string
	switch direction {
	case models.DirectionUp:
		timing = "Your current property is likely appreciating too. Simultaneous move minimises timing risk."
	case models.DirectionDown:
		timing = "A softening market means more negotiating power on purchases, but price your sale correctly."
	default:
		timing = "Stable market — good conditions for a chain-free move."
	}

	negotiation := "Negotiate firmly — comparables support a lower entry."
	if signal == models.SignalBuy {
		negotiation = "Good time to buy. Make a confident first offer."
	}

	action := "Consider timing carefully."
	if signal == models.SignalBuy {
		action = "Now is a good time to act."
	}

	seasonActivity := "slower — leverage buyer scarcity"
	if snap.Season == "Spring" || snap.Season == "Summer" {
		seasonActivity = "active"
	}

	return models.UserInsights{
		Headline:           fmt.Sprintf("Market is %s. %s", strings.ToLower(string(direction)), action),
		MarketTiming:       timing,
		NegotiationContext: negotiation,
		SeasonNote:         fmt.Sprintf("%s market: %s.", snap.Season, seasonActivity),
	}
}

func signedPct(pct float64) string {
	if pct >= 0 {
		return fmt.Sprintf("+%.1f%%", pct)
	}
	return fmt.Sprintf("%.1f%%", pct)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(v, 1))
}

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
