package http

// APIResponse is the envelope every endpoint writes. Status carries the
// logical status code even though the transport answers 200.
type APIResponse struct {
	Status  int         `json:"status" example:"200"`
	Message string      `json:"message" example:"OK"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError describes a single failed field on an incoming request.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string                 `json:"field,omitempty" example:"postcode"`
	Message string                 `json:"message,omitempty" example:"Postcode is required"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// ListDataResponse wraps paginated rows, used by the history endpoint.
type ListDataResponse struct {
	Rows  interface{} `json:"rows"`
	Total int64       `json:"total"`
}
