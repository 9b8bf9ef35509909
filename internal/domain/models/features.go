package models

// FeatureDim is the fixed feature-vector dimensionality. The model's weight
// vector always has exactly this length; changing the dimension or the order
// in FeatureNames invalidates existing weights.
const FeatureDim = 10

// FeatureVector is one ordered sample of engineered features.
type FeatureVector [FeatureDim]float64

// FeatureNames documents the versioned feature order. Index positions are
// part of the model contract.
var FeatureNames = [FeatureDim]string{
	"boe_rate",
	"inflation_rate",
	"log_boe_rate",
	"inflation_momentum",
	"season_factor",
	"rate_inflation_interaction",
	"affordability_score",
	"rolling_boe_mean",
	"price_to_market",
	"property_profile",
}
