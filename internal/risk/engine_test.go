package risk

import (
	"math"
	"testing"

	"RiskPulse/internal/domain/models"
)

func TestScoreBounds(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	cases := []models.FeatureSet{
		{},
		{"velocity": 1e9, "amount": 1e12, "anomaly_score": 5.0, "reputation": -3.0},
		{"velocity": 85, "amount": 7500, "anomaly_score": 0.1, "reputation": 0.9},
		{"blacklist_match": true, "unusual_pattern": true},
		{"implied_vol": 0.9, "gamma": 1.0, "delta": -2.0, "bid_ask_spread": 10.0,
			"market_session": "closed", "price_change_pct": -50.0},
	}
	for _, f := range cases {
		score := e.CalculateScore(f)
		if score < 0 || score > 1 {
			t.Fatalf("score %v out of [0,1] for %v", score, f)
		}
	}
}

func TestTransactionOnlyScore(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	// 0.85*0.30 + 0.75*0.25 + 0.1*0.25 + 0.1*0.20 = 0.4875
	f := models.FeatureSet{"velocity": 85, "amount": 7500, "anomaly_score": 0.1, "reputation": 0.9}
	if got := e.CalculateScore(f); got != 0.4875 {
		t.Fatalf("score = %v, want 0.4875", got)
	}
}

func TestMarketBlend(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	// Transaction sub-score 0.40, market sub-score 0.80.
	f := models.FeatureSet{
		"velocity": 100, "amount": 4000, "anomaly_score": 0.0, "reputation": 1.0,
		"implied_vol": 0.50, "gamma": 0.05, "delta": 1.0, "bid_ask_spread": 0.5,
		"market_session": "open", "price_change_pct": 0.0,
	}
	if got := e.CalculateScore(f); got != 0.52 {
		t.Fatalf("blended score = %v, want 0.52", got)
	}
}

func TestBlacklistOverride(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	cases := []models.FeatureSet{
		{"blacklist_match": true},
		{"blacklist_match": true, "velocity": 1, "reputation": 1.0},
		{"blacklist_match": true, "velocity": 100, "amount": 10000, "anomaly_score": 1.0, "reputation": 0.0},
	}
	for _, f := range cases {
		if got := e.CalculateScore(f); got < 0.95 {
			t.Fatalf("blacklisted score %v < 0.95 for %v", got, f)
		}
	}
}

func TestUnusualPatternBump(t *testing.T) {
	e := NewEngine(DefaultThresholds())

	// Base 0.50 -> 0.65.
	f := models.FeatureSet{"velocity": 100, "amount": 8000, "unusual_pattern": true}
	if got := e.CalculateScore(f); got != 0.65 {
		t.Fatalf("bumped score = %v, want 0.65", got)
	}

	// Base 0.90 -> capped at 1.0.
	f = models.FeatureSet{
		"velocity": 100, "amount": 10000, "anomaly_score": 1.0, "reputation": 0.5,
		"unusual_pattern": true,
	}
	if got := e.CalculateScore(f); got != 1.0 {
		t.Fatalf("capped score = %v, want 1.0", got)
	}
}

func TestClassifyMonotonic(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	prev := -1
	for score := 0.0; score <= 1.0; score += 0.01 {
		rank := e.ClassifyLevel(score).Rank()
		if rank < prev {
			t.Fatalf("level rank decreased at score %v", score)
		}
		prev = rank
	}
}

func TestClassifyLevels(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	cases := []struct {
		score float64
		want  models.RiskLevel
	}{
		{0.0, models.LevelLow},
		{0.49, models.LevelLow},
		{0.5, models.LevelMedium},
		{0.79, models.LevelMedium},
		{0.8, models.LevelHigh},
		{0.89, models.LevelHigh},
		{0.90, models.LevelCritical},
		{1.0, models.LevelCritical},
	}
	for _, c := range cases {
		if got := e.ClassifyLevel(c.score); got != c.want {
			t.Fatalf("ClassifyLevel(%v) = %v, want %v", c.score, got, c.want)
		}
	}
}

func TestFactorOrder(t *testing.T) {
	f := models.FeatureSet{
		"velocity": 80, "amount": 6000, "anomaly_score": 0.8, "reputation": 0.4,
		"unusual_pattern": true, "blacklist_match": true,
	}
	got := IdentifyFactors(f)
	want := []string{
		"High transaction velocity detected",
		"Large transaction amount",
		"Statistical anomaly detected",
		"Low entity reputation",
		"Unusual behavioral pattern",
		"Blacklist match found",
	}
	if len(got) != len(want) {
		t.Fatalf("factors = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("factor[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestGenericFactor(t *testing.T) {
	got := IdentifyFactors(models.FeatureSet{"velocity": 1})
	if len(got) != 1 || got[0] != "Composite score exceeds threshold" {
		t.Fatalf("expected generic factor, got %v", got)
	}
}

func TestAssessEndToEnd(t *testing.T) {
	// Thresholds tuned so the behavioral-only scenario classifies as high.
	e := NewEngine(Thresholds{Low: 0.1, Medium: 0.25, High: 0.45})
	f := models.FeatureSet{"velocity": 85, "amount": 7500, "anomaly_score": 0.1, "reputation": 0.9}

	a := e.Assess("txn_42", "transaction", f)
	if a.RiskScore != 0.4875 {
		t.Fatalf("score = %v, want 0.4875", a.RiskScore)
	}
	if a.RiskLevel != models.LevelHigh {
		t.Fatalf("level = %v, want high", a.RiskLevel)
	}
	if a.EntityID != "txn_42" || a.EntityType != "transaction" {
		t.Fatalf("entity fields not carried: %+v", a)
	}
	if a.ID == "" || a.CreatedAt.IsZero() {
		t.Fatalf("assessment missing id or timestamp: %+v", a)
	}
	if len(a.RiskFactors) != 2 {
		// velocity>50 and amount>5000
		t.Fatalf("factors = %v", a.RiskFactors)
	}

	// Stored features must be a snapshot, not an alias.
	f["velocity"] = 0
	if a.Features.Float("velocity", 0) != 85 {
		t.Fatalf("stored features aliased caller map")
	}
}

func TestMissingFeatureDefaults(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	// Reputation defaults to 1.0 (neutral), everything else to 0.
	if got := e.CalculateScore(models.FeatureSet{}); got != 0 {
		t.Fatalf("empty feature score = %v, want 0", got)
	}
}

func TestSetThresholds(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	e.SetThresholds(Thresholds{Low: 0.1, Medium: 0.2, High: 0.4})
	if got := e.ClassifyLevel(0.45); got != models.LevelHigh {
		t.Fatalf("level after update = %v, want high", got)
	}
}

func TestMarketScoreIgnoredWhenAbsent(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	base := models.FeatureSet{"velocity": 50, "amount": 2500}
	withSession := models.FeatureSet{"velocity": 50, "amount": 2500, "market_session": "open"}

	b := e.CalculateScore(base)
	s := e.CalculateScore(withSession)
	// An all-zero market sub-score leaves the blend untouched.
	if math.Abs(b-s) > 1e-9 {
		t.Fatalf("zero market sub-score changed blend: %v vs %v", b, s)
	}
}
