package models

import "time"

// RiskLevel classifies a composite risk score.
type RiskLevel string

const (
	LevelLow      RiskLevel = "low"
	LevelMedium   RiskLevel = "medium"
	LevelHigh     RiskLevel = "high"
	LevelCritical RiskLevel = "critical"
)

// rank orders levels for monotonicity checks; higher is riskier.
func (l RiskLevel) Rank() int {
	switch l {
	case LevelLow:
		return 0
	case LevelMedium:
		return 1
	case LevelHigh:
		return 2
	case LevelCritical:
		return 3
	default:
		return -1
	}
}

// FeatureSet maps feature names to numeric or boolean values. A FeatureSet is
// frozen once handed to the scoring engine; scorers must not mutate it.
type FeatureSet map[string]any

// Float reads a numeric feature, defaulting when the key is absent or not a number.
func (f FeatureSet) Float(key string, def float64) float64 {
	v, ok := f[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return def
	}
}

// Bool reads a boolean feature, defaulting to false when absent.
func (f FeatureSet) Bool(key string) bool {
	v, ok := f[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// Has reports whether any of the given keys is present.
func (f FeatureSet) Has(keys ...string) bool {
	for _, k := range keys {
		if _, ok := f[k]; ok {
			return true
		}
	}
	return false
}

// Clone returns a shallow copy so stored snapshots cannot alias caller maps.
func (f FeatureSet) Clone() FeatureSet {
	if f == nil {
		return nil
	}
	out := make(FeatureSet, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// RiskAssessment is the append-only record produced for every scored event.
// Created exactly once per event and never mutated afterwards.
type RiskAssessment struct {
	ID          string     `json:"id"`
	EntityID    string     `json:"entity_id"`
	EntityType  string     `json:"entity_type"`
	RiskScore   float64    `json:"risk_score"` // 0.0..1.0
	RiskLevel   RiskLevel  `json:"risk_level"`
	RiskFactors []string   `json:"risk_factors"`
	Features    FeatureSet `json:"features"`
	Source      string     `json:"source"` // streaming, manual, batch
	CreatedAt   time.Time  `json:"timestamp"`
}

// Alert is the payload handed to the alert collaborator for high and critical
// assessments. Severity derivation mirrors the scoring engine's critical cut.
type Alert struct {
	ID           string    `json:"id"`
	AssessmentID string    `json:"assessment_id"`
	EntityID     string    `json:"entity_id"`
	EntityType   string    `json:"entity_type"`
	AlertType    string    `json:"alert_type"`
	Severity     string    `json:"severity"` // high or critical
	Message      string    `json:"message"`
	RiskScore    float64   `json:"risk_score"`
	RiskLevel    RiskLevel `json:"risk_level"`
	RiskFactors  []string  `json:"risk_factors"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuditEntry records a pipeline action for the audit collaborator.
// Actor is empty for pipeline-sourced events.
type AuditEntry struct {
	ID         string         `json:"id"`
	Actor      string         `json:"actor,omitempty"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
