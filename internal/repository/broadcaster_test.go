package repository

import (
	"encoding/json"
	"testing"
	"time"

	"RiskPulse/internal/domain/models"
)

func TestRiskUpdateEnvelopeShape(t *testing.T) {
	a := &models.RiskAssessment{
		ID:          "a1",
		EntityID:    "txn_1",
		EntityType:  "transaction",
		RiskScore:   0.91,
		RiskLevel:   models.LevelCritical,
		RiskFactors: []string{"blacklisted_entity"},
		Features:    models.FeatureSet{"velocity": float64(120), "symbol": "NIFTY"},
		Source:      "streaming",
		CreatedAt:   time.Now().UTC(),
	}

	b, err := json.Marshal(riskUpdateEnvelope(a))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var msg struct {
		Type string                 `json:"type"`
		Data map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(b, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != "risk_update" {
		t.Fatalf("type = %q, want risk_update", msg.Type)
	}

	// Every transport must carry the full assessment, features included.
	for _, key := range []string{"id", "entity_id", "entity_type", "risk_score", "risk_level", "risk_factors", "features", "source", "timestamp"} {
		if _, ok := msg.Data[key]; !ok {
			t.Fatalf("envelope missing %q: %v", key, msg.Data)
		}
	}
	features, ok := msg.Data["features"].(map[string]interface{})
	if !ok || features["symbol"] != "NIFTY" {
		t.Fatalf("features not preserved: %v", msg.Data["features"])
	}
}
