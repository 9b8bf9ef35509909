package models

import (
	"fmt"
	"strings"
	"time"
)

// Direction is the forecast price direction.
type Direction string

const (
	DirectionUp       Direction = "UP"
	DirectionDown     Direction = "DOWN"
	DirectionSideways Direction = "SIDEWAYS"
)

// Signal is the derived investment signal.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalHold Signal = "HOLD"
	SignalSell Signal = "SELL"
)

// UserType selects which insight templates a prediction response carries.
type UserType string

const (
	UserInvestor       UserType = "investor"
	UserFirstTimeBuyer UserType = "first_time_buyer"
	UserHomeMover      UserType = "home_mover"
)

// Subject identifies the property a prediction is about.
type Subject struct {
	Postcode         string
	PropertyType     string
	Bedrooms         int
	CurrentValuation float64
	UserType         UserType
}

// Key returns the ledger subject key: postcode|property_type|bedrooms.
func (s Subject) Key() string {
	return fmt.Sprintf("%s|%s|%d", NormalizePostcode(s.Postcode), s.PropertyType, s.Bedrooms)
}

// NormalizePostcode strips spaces and upper-cases a UK postcode.
func NormalizePostcode(pc string) string {
	return strings.ToUpper(strings.ReplaceAll(pc, " ", ""))
}

// ModelState is an immutable copy of the online model's parameters as of one
// cycle. Readers predict against this copy and never touch the live model.
type ModelState struct {
	Weights      FeatureVector `json:"weights"`
	Bias         float64       `json:"bias"`
	CycleCount   int           `json:"cycle_count"`
	LearningRate float64       `json:"learning_rate"`
	L2Penalty    float64       `json:"l2_penalty"`
}

// PipelineState is the shared aggregate published atomically after every
// tick. Single writer (the scheduler tick), many concurrent readers. A state
// value is never mutated after publication.
type PipelineState struct {
	Snapshot       *MacroSnapshot
	Model          ModelState
	CycleCount     int
	Confidence     float64
	WarmupComplete bool
	LastRunAt      time.Time
	LastError      string
}

// PredictionRecord is one append-only ledger entry.
type PredictionRecord struct {
	SubjectKey         string       `json:"subject_key"`
	Postcode           string       `json:"postcode"`
	PropertyType       string       `json:"property_type"`
	Bedrooms           int          `json:"bedrooms"`
	PredictedValue     float64      `json:"predicted_value"`
	PredictedChangePct float64      `json:"predicted_change_pct"`
	Direction          Direction    `json:"direction"`
	Confidence         float64      `json:"confidence"`
	CompositeScore     float64      `json:"composite_score"`
	InvestmentSignal   Signal       `json:"investment_signal"`
	MacroSignals       MacroSignals `json:"macro_signals"`
	Cycle              int          `json:"model_cycles"`
	Degraded           bool         `json:"degraded"`
	Timestamp          time.Time    `json:"timestamp"`
}

// UserInsights carries the profile-specific textual hints. All templates are
// deterministic functions of the numeric outputs; fields not relevant to the
// requested profile are omitted.
type UserInsights struct {
	Headline             string   `json:"headline"`
	ROIEstimate          *float64 `json:"roi_estimate,omitempty"`
	RentalYieldContext   string   `json:"rental_yield_context,omitempty"`
	HoldPeriodSuggestion string   `json:"hold_period_suggestion,omitempty"`
	AffordabilityOutlook string   `json:"affordability_outlook,omitempty"`
	BestTimeToBuy        string   `json:"best_time_to_buy,omitempty"`
	StampDutyNote        string   `json:"stamp_duty_note,omitempty"`
	MarketTiming         string   `json:"market_timing,omitempty"`
	NegotiationContext   string   `json:"negotiation_context,omitempty"`
	SeasonNote           string   `json:"season_note,omitempty"`
}

// SignalResult bundles the signal deriver's outputs.
type SignalResult struct {
	CompositeScore   float64
	InvestmentSignal Signal
	Direction        Direction
	Insights         UserInsights
}

// PredictResponse is the JSON prediction contract. Numeric forecast fields
// are pointers so they are absent, not zero, while the model is warming up.
type PredictResponse struct {
	Postcode           string        `json:"postcode"`
	ModelReady         bool          `json:"model_ready"`
	WarmingUp          bool          `json:"warming_up"`
	Direction          Direction     `json:"direction,omitempty"`
	PredictedValue     *float64      `json:"predicted_value,omitempty"`
	PredictedChangePct *float64      `json:"predicted_change_pct,omitempty"`
	Confidence         float64       `json:"confidence"`
	CompositeScore     *float64      `json:"composite_score,omitempty"`
	InvestmentSignal   Signal        `json:"investment_signal,omitempty"`
	UserInsights       *UserInsights `json:"user_insights,omitempty"`
	MacroSignals       *MacroSignals `json:"macro_signals,omitempty"`
	ModelCycles        int           `json:"model_cycles"`
	Timestamp          time.Time     `json:"timestamp"`
	Error              string        `json:"error,omitempty"`
}

// HealthStatus is the engine health contract.
type HealthStatus struct {
	CycleCount     int       `json:"cycle_count"`
	WarmupComplete bool      `json:"warmup_complete"`
	Confidence     float64   `json:"confidence"`
	LastRunAt      time.Time `json:"last_run_at"`
	LastError      string    `json:"last_error,omitempty"`
}
