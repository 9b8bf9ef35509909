package usecase

import (
	"math"

	"Predictelligence/internal/domain/models"
)

// Property type ordinal weights. Part of the feature contract: the model's
// weight vector is only meaningful against these exact encodings.
var propertyTypeWeights = map[string]float64{
	"detached":      1.25,
	"semi_detached": 1.10,
	"terraced":      1.00,
	"flat":          0.85,
	"bungalow":      1.05,
}

// bedroomScale converts a bedroom count into a multiplicative profile factor
// centred on a three-bed property.
func bedroomScale(bedrooms int) float64 {
	return 1.0 + 0.12*float64(bedrooms-3)
}

// Fixed z-score constants per feature (mean, stddev). These replace a fitted
// scaler so derivation is pure and deterministic; the values approximate the
// 2023-2025 UK macro ranges the model operates in.
var featureNorms = [models.FeatureDim][2]float64{
	{4.50, 1.50},  // boe_rate
	{3.00, 2.00},  // inflation_rate
	{1.70, 0.30},  // log_boe_rate
	{0.00, 0.50},  // inflation_momentum
	{0.85, 0.17},  // season_factor
	{14.0, 8.00},  // rate_inflation_interaction
	{0.38, 0.12},  // affordability_score
	{4.50, 1.50},  // rolling_boe_mean
	{1.00, 0.50},  // price_to_market
	{1.00, 0.25},  // property_profile
}

// FeatureEngineer derives the model's feature vector from a macro snapshot
// and the request subject. Pure function of its inputs.
type FeatureEngineer struct{}

func NewFeatureEngineer() *FeatureEngineer {
	return &FeatureEngineer{}
}

// Derive builds the versioned 10-feature vector. Order must match
// models.FeatureNames exactly.
func (f *FeatureEngineer) Derive(snap *models.MacroSnapshot, subject models.Subject) models.FeatureVector {
	raw := f.deriveRaw(snap, subject)
	var out models.FeatureVector
	for i, v := range raw {
		out[i] = (v - featureNorms[i][0]) / featureNorms[i][1]
	}
	return out
}

// PriceToMarket is the subject valuation relative to the UK average. Also
// the anchor multiplier for the model's surrogate training label.
func (f *FeatureEngineer) PriceToMarket(snap *models.MacroSnapshot, subject models.Subject) float64 {
	if snap.UKAvgPrice <= 0 || subject.CurrentValuation <= 0 {
		return 1.0
	}
	return subject.CurrentValuation / snap.UKAvgPrice
}

func (f *FeatureEngineer) deriveRaw(snap *models.MacroSnapshot, subject models.Subject) models.FeatureVector {
	affordability := (10.0 - snap.BoeRate) / 10.0 * (1.0 - snap.InflationRate/20.0)

	typeWeight, ok := propertyTypeWeights[subject.PropertyType]
	if !ok {
		typeWeight = propertyTypeWeights["terraced"]
	}

	return models.FeatureVector{
		snap.BoeRate,
		snap.InflationRate,
		math.Log(snap.BoeRate + 1.0),
		snap.InflationMomentum,
		snap.SeasonFactor,
		snap.BoeRate * snap.InflationRate,
		affordability,
		snap.RollingBoeMean,
		f.PriceToMarket(snap, subject),
		typeWeight * bedroomScale(subject.Bedrooms),
	}
}
