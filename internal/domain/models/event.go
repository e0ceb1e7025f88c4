package models

import "time"

// MarketEvent is an ephemeral entity event flowing into the pipeline. It is
// consumed on scoring; only the resulting RiskAssessment outlives it.
type MarketEvent struct {
	EntityID   string     `json:"entity_id"`
	EntityType string     `json:"entity_type"`
	Features   FeatureSet `json:"features"`
	Timestamp  time.Time  `json:"timestamp"`
}

// PipelineStats is a point-in-time snapshot of the pipeline's counters.
type PipelineStats struct {
	IsRunning       bool    `json:"is_running"`
	Engine          string  `json:"engine"`
	EventsProcessed uint64  `json:"events_processed"`
	ErrorsCount     uint64  `json:"errors_count"`
	ErrorRate       float64 `json:"error_rate"`
}

// MarketSummary reports the generator's current internal state.
type MarketSummary struct {
	Session          string             `json:"session"`
	VolatilityRegime string             `json:"volatility_regime"`
	ActiveSymbols    int                `json:"active_symbols"`
	CurrentPrices    map[string]float64 `json:"current_prices"`
	EventsGenerated  uint64             `json:"events_generated"`
	Timestamp        time.Time          `json:"timestamp"`
}
