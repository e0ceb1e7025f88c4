package risk

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"RiskPulse/internal/domain/models"
)

// Transaction sub-score weights; sum to 1.0.
const (
	weightVelocity   = 0.30
	weightAmount     = 0.25
	weightAnomaly    = 0.25
	weightReputation = 0.20
)

// Market sub-score weights.
const (
	weightImpliedVol  = 0.30
	weightGamma       = 0.20
	weightDelta       = 0.15
	weightLiquidity   = 0.15
	weightSession     = 0.10
	weightPriceChange = 0.10
)

// Blend weights when market features are present.
const (
	blendTransaction = 0.70
	blendMarket      = 0.30
)

var marketKeys = []string{
	"delta", "gamma", "theta", "vega", "implied_vol",
	"bid_ask_spread", "market_session", "price_change_pct", "spot_price",
}

// Thresholds configure risk level classification. The configuration layer
// guarantees Low < Medium < High before they reach the engine.
type Thresholds struct {
	Low    float64
	Medium float64
	High   float64
}

// DefaultThresholds match the shipped configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{Low: 0.3, Medium: 0.5, High: 0.8}
}

// Engine blends behavioral and market sub-models into a composite score in
// [0,1] with hard-override rules. Pure aside from the threshold set.
type Engine struct {
	mu         sync.RWMutex
	thresholds Thresholds
}

// NewEngine creates a scoring engine with the given thresholds.
func NewEngine(t Thresholds) *Engine {
	return &Engine{thresholds: t}
}

// SetThresholds swaps the classification thresholds at runtime. Ordering is
// validated by the configuration collaborator, not here.
func (e *Engine) SetThresholds(t Thresholds) {
	e.mu.Lock()
	e.thresholds = t
	e.mu.Unlock()
}

// CurrentThresholds returns the active threshold set.
func (e *Engine) CurrentThresholds() Thresholds {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.thresholds
}

// Assess performs a complete risk assessment for one entity event. Features
// are treated as frozen; missing keys default to neutral values.
func (e *Engine) Assess(entityID, entityType string, features models.FeatureSet) models.RiskAssessment {
	score := e.CalculateScore(features)
	level := e.ClassifyLevel(score)
	factors := IdentifyFactors(features)

	return models.RiskAssessment{
		ID:          uuid.NewString(),
		EntityID:    entityID,
		EntityType:  entityType,
		RiskScore:   score,
		RiskLevel:   level,
		RiskFactors: factors,
		Features:    features.Clone(),
		Source:      "streaming",
		CreatedAt:   time.Now().UTC(),
	}
}

// CalculateScore computes the blended, override-adjusted composite score,
// clamped to [0,1] and rounded to 6 decimals.
func (e *Engine) CalculateScore(features models.FeatureSet) float64 {
	tx := transactionScore(features)

	score := tx
	if market, ok := marketScore(features); ok && market > 0 {
		score = blendTransaction*tx + blendMarket*market
	}

	// Hard overrides, applied after the blend in this order.
	if features.Bool("blacklist_match") {
		score = math.Max(score, 0.95)
	}
	if features.Bool("unusual_pattern") {
		score = math.Min(score+0.15, 1.0)
	}

	return round6(clamp01(score))
}

func transactionScore(features models.FeatureSet) float64 {
	velocity := math.Min(features.Float("velocity", 0)/100.0, 1.0)
	amount := math.Min(features.Float("amount", 0)/10000.0, 1.0)
	anomaly := features.Float("anomaly_score", 0)
	reputation := 1 - features.Float("reputation", 1.0)

	return velocity*weightVelocity +
		amount*weightAmount +
		anomaly*weightAnomaly +
		reputation*weightReputation
}

// marketScore computes the market sub-score; ok is false when no market
// feature key is present at all.
func marketScore(features models.FeatureSet) (float64, bool) {
	if !features.Has(marketKeys...) {
		return 0, false
	}

	// Implied vol normalized from [0.10, 0.50] to [0, 1].
	iv := features.Float("implied_vol", 0)
	ivRisk := clamp01((iv - 0.10) / 0.40)

	gammaRisk := math.Min(math.Abs(features.Float("gamma", 0))/0.05, 1.0)
	deltaRisk := math.Min(math.Abs(features.Float("delta", 0)), 1.0)

	var liquidityRisk float64
	if features.Has("bid_ask_spread") {
		liquidityRisk = math.Min(features.Float("bid_ask_spread", 0)/0.5, 1.0)
	} else {
		liquidityRisk = clamp01(1 - features.Float("liquidity_score", 1.0))
	}

	sessionRisk := 0.2
	switch features["market_session"] {
	case "open":
		sessionRisk = 0.0
	case "pre_open":
		sessionRisk = 0.5
	case "closed":
		sessionRisk = 1.0
	case nil:
		sessionRisk = 0.2
	}

	changeRisk := math.Min(math.Abs(features.Float("price_change_pct", 0))/5.0, 1.0)

	score := ivRisk*weightImpliedVol +
		gammaRisk*weightGamma +
		deltaRisk*weightDelta +
		liquidityRisk*weightLiquidity +
		sessionRisk*weightSession +
		changeRisk*weightPriceChange
	return score, true
}

// ClassifyLevel maps a score to a level; the critical cut at 0.90 is fixed.
func (e *Engine) ClassifyLevel(score float64) models.RiskLevel {
	t := e.CurrentThresholds()
	switch {
	case score >= 0.90:
		return models.LevelCritical
	case score >= t.High:
		return models.LevelHigh
	case score >= t.Medium:
		return models.LevelMedium
	default:
		return models.LevelLow
	}
}

// IdentifyFactors emits one human-readable string per triggered rule, in rule
// order. A generic factor is emitted when nothing specific triggered.
func IdentifyFactors(features models.FeatureSet) []string {
	var factors []string

	if features.Float("velocity", 0) > 50 {
		factors = append(factors, "High transaction velocity detected")
	}
	if features.Float("amount", 0) > 5000 {
		factors = append(factors, "Large transaction amount")
	}
	if features.Float("anomaly_score", 0) > 0.7 {
		factors = append(factors, "Statistical anomaly detected")
	}
	if features.Float("reputation", 1.0) < 0.5 {
		factors = append(factors, "Low entity reputation")
	}
	if features.Bool("unusual_pattern") {
		factors = append(factors, "Unusual behavioral pattern")
	}
	if features.Bool("blacklist_match") {
		factors = append(factors, "Blacklist match found")
	}
	if features.Float("implied_vol", 0) > 0.30 {
		factors = append(factors, "Elevated implied volatility")
	}
	if math.Abs(features.Float("gamma", 0)) > 0.03 {
		factors = append(factors, "High gamma exposure")
	}
	if math.Abs(features.Float("delta", 0)) > 0.75 {
		factors = append(factors, "Deep in-the-money delta")
	}
	if s, ok := features["market_session"].(string); ok && s != "open" {
		factors = append(factors, fmt.Sprintf("Trading outside market hours (%s)", s))
	}
	if math.Abs(features.Float("price_change_pct", 0)) >= 3.0 {
		factors = append(factors, "Sharp underlying price move")
	}

	if len(factors) == 0 {
		factors = append(factors, "Composite score exceeds threshold")
	}
	return factors
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
