package models

// Requests for the prediction HTTP endpoints. Defined in domain for
// consistency and reuse.

type PredictRequest struct {
	Postcode         string  `query:"postcode" json:"postcode" validate:"required,uk_postcode"`
	PropertyType     string  `query:"property_type" json:"property_type" default:"terraced" validate:"oneof=detached semi_detached terraced flat bungalow"`
	Bedrooms         int     `query:"bedrooms" json:"bedrooms" default:"3" validate:"gte=1,lte=10"`
	CurrentValuation float64 `query:"current_valuation" json:"current_valuation" default:"285000" validate:"gte=50000,lte=5000000"`
	UserType         string  `query:"user_type" json:"user_type" default:"investor" validate:"oneof=investor first_time_buyer home_mover"`
}

// Subject converts the request into the pipeline's subject form.
func (r *PredictRequest) Subject() Subject {
	return Subject{
		Postcode:         NormalizePostcode(r.Postcode),
		PropertyType:     r.PropertyType,
		Bedrooms:         r.Bedrooms,
		CurrentValuation: r.CurrentValuation,
		UserType:         UserType(r.UserType),
	}
}

type HistoryRequest struct {
	Postcode string `query:"postcode" json:"postcode" validate:"required,uk_postcode"`
	Limit    int    `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=500"`
}
