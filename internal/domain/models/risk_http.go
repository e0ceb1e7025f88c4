package models

// Requests for the risk HTTP endpoints. Defined in domain for consistency
// and reuse.

type LatestAssessmentsRequest struct {
	Limit int `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type EntityHistoryRequest struct {
	EntityID string `param:"entity_id" json:"entity_id" validate:"required"`
	From     string `query:"from" json:"from" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	To       string `query:"to" json:"to" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Limit    int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type AssessRequest struct {
	EntityID   string         `json:"entity_id" validate:"required"`
	EntityType string         `json:"entity_type" validate:"required"`
	Features   map[string]any `json:"features" validate:"required"`
}

type GreeksRequest struct {
	SpotPrice    float64 `json:"spot_price" validate:"required,gt=0"`
	StrikePrice  float64 `json:"strike_price" validate:"required,gt=0"`
	TimeToExpiry float64 `json:"time_to_expiry" validate:"required,gt=0"`
	Volatility   float64 `json:"volatility" validate:"required,gt=0"`
	RiskFreeRate float64 `json:"risk_free_rate" validate:"gte=0"`
	OptionType   string  `json:"option_type" default:"call" validate:"oneof=call put"`
}

type ThresholdsRequest struct {
	Low    float64 `json:"low" validate:"gte=0,lte=1"`
	Medium float64 `json:"medium" validate:"gte=0,lte=1"`
	High   float64 `json:"high" validate:"gte=0,lte=1"`
}
