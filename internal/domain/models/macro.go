package models

import "time"

// RateDirection describes the movement of the BoE base rate between cycles.
type RateDirection string

const (
	RateRising  RateDirection = "RISING"
	RateFalling RateDirection = "FALLING"
	RateHolding RateDirection = "HOLDING"
)

// InflationTrend buckets the CPIH reading.
type InflationTrend string

const (
	InflationStable   InflationTrend = "STABLE"
	InflationElevated InflationTrend = "ELEVATED"
)

// Affordability summarises mortgage affordability conditions.
type Affordability string

const (
	AffordabilityImproving Affordability = "IMPROVING"
	AffordabilityPressured Affordability = "PRESSURED"
)

// MacroSnapshot is one cycle's view of UK macro conditions. Immutable once
// constructed; the data source builds a fresh snapshot every fetch.
//
// InflationMomentum and RollingBoeMean are derived from the source's rolling
// history so that feature derivation downstream stays a pure function.
type MacroSnapshot struct {
	BoeRate           float64        `json:"boe_rate"`
	BoeDirection      RateDirection  `json:"boe_direction"`
	InflationRate     float64        `json:"inflation_rate"`
	InflationTrend    InflationTrend `json:"inflation_trend"`
	InflationMomentum float64        `json:"inflation_momentum"`
	RollingBoeMean    float64        `json:"rolling_boe_mean"`
	AvgTemp           float64        `json:"avg_temp"`
	Season            string         `json:"season"`
	SeasonFactor      float64        `json:"season_factor"`
	UKAvgPrice        float64        `json:"uk_avg_price"`
	Affordability     Affordability  `json:"affordability"`
	FetchedAt         time.Time      `json:"fetched_at"`
	Degraded          bool           `json:"degraded"`
}

// MacroSignals is the client-facing summary of a snapshot, embedded in
// prediction responses.
type MacroSignals struct {
	BoeRate        float64        `json:"boe_rate"`
	BoeDirection   RateDirection  `json:"boe_direction"`
	InflationRate  float64        `json:"inflation_rate"`
	InflationTrend InflationTrend `json:"inflation_trend"`
	Season         string         `json:"season"`
	Affordability  Affordability  `json:"affordability"`
}

// Signals summarises a snapshot for responses and ledger records.
func (s *MacroSnapshot) Signals() MacroSignals {
	return MacroSignals{
		BoeRate:        s.BoeRate,
		BoeDirection:   s.BoeDirection,
		InflationRate:  s.InflationRate,
		InflationTrend: s.InflationTrend,
		Season:         s.Season,
		Affordability:  s.Affordability,
	}
}
