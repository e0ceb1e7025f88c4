package simulator

import (
	"math"
	"testing"
	"time"

	"RiskPulse/internal/pricing"
)

func newTestGenerator(t *testing.T, opts ...Option) *Generator {
	t.Helper()
	opts = append([]Option{WithSeed(7)}, opts...)
	return New(pricing.NewBlack76(), opts...)
}

func TestNextEventShape(t *testing.T) {
	g := newTestGenerator(t)
	ev := g.NextEvent()

	if ev.EntityID == "" || ev.EntityType == "" {
		t.Fatalf("missing entity fields: %+v", ev)
	}
	if ev.Timestamp.IsZero() {
		t.Fatalf("missing timestamp")
	}

	required := []string{
		"symbol", "spot_price", "price_change_pct", "market_session",
		"bid_ask_spread", "velocity", "amount", "anomaly_score", "reputation",
		"delta", "gamma", "theta", "vega", "rho", "implied_vol",
	}
	for _, key := range required {
		if _, ok := ev.Features[key]; !ok {
			t.Fatalf("feature %q missing from %v", key, ev.Features)
		}
	}
}

func TestPricesStayPositiveAndTickAligned(t *testing.T) {
	g := newTestGenerator(t)
	for i := 0; i < 500; i++ {
		g.NextEvent()
	}
	for sym, price := range g.Summary().CurrentPrices {
		if price < 0.05 {
			t.Fatalf("%s price %v below floor", sym, price)
		}
	}
	for sym, change := range g.lastChange {
		if change == 0 {
			continue
		}
		// Changes are multiples of the 0.05 tick (0.10 is also one).
		ratio := change / 0.05
		if math.Abs(ratio-math.Round(ratio)) > 1e-6 {
			t.Fatalf("%s change %v not tick aligned", sym, change)
		}
	}
}

func TestGreeksWithinBounds(t *testing.T) {
	g := newTestGenerator(t)
	for i := 0; i < 200; i++ {
		ev := g.NextEvent()
		gamma := ev.Features.Float("gamma", -1)
		vega := ev.Features.Float("vega", -1)
		if gamma < 0 {
			t.Fatalf("gamma %v < 0", gamma)
		}
		if vega < 0 {
			t.Fatalf("vega %v < 0", vega)
		}
		delta := ev.Features.Float("delta", 0)
		if delta < -1 || delta > 1 {
			t.Fatalf("delta %v outside [-1,1]", delta)
		}
	}
}

func TestMarketSession(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	cases := []struct {
		hour, min int
		want      string
	}{
		{9, 0, "pre_open"},
		{9, 14, "pre_open"},
		{9, 15, "open"},
		{12, 0, "open"},
		{15, 30, "open"},
		{15, 31, "closed"},
		{3, 0, "closed"},
		{22, 45, "closed"},
	}
	for _, c := range cases {
		at := time.Date(2026, 3, 4, c.hour, c.min, 0, 0, ist)
		g := newTestGenerator(t, WithClock(func() time.Time { return at }))
		if got := g.marketSession(); got != c.want {
			t.Fatalf("session at %02d:%02d = %q, want %q", c.hour, c.min, got, c.want)
		}
	}
}

func TestDeterministicWithSeed(t *testing.T) {
	fixed := time.Date(2026, 3, 4, 11, 0, 0, 0, time.UTC)
	clock := func() time.Time { return fixed }

	a := New(pricing.NewBlack76(), WithSeed(99), WithClock(clock))
	b := New(pricing.NewBlack76(), WithSeed(99), WithClock(clock))
	for i := 0; i < 50; i++ {
		ea, eb := a.NextEvent(), b.NextEvent()
		if ea.EntityID != eb.EntityID {
			t.Fatalf("entity id diverged: %s vs %s", ea.EntityID, eb.EntityID)
		}
		if ea.Features.Float("spot_price", 0) != eb.Features.Float("spot_price", 0) {
			t.Fatalf("price walk diverged at event %d", i)
		}
	}
}

func TestSummary(t *testing.T) {
	g := newTestGenerator(t)
	for i := 0; i < 10; i++ {
		g.NextEvent()
	}
	s := g.Summary()
	if s.EventsGenerated != 10 {
		t.Fatalf("events generated = %d, want 10", s.EventsGenerated)
	}
	if s.ActiveSymbols != len(s.CurrentPrices) {
		t.Fatalf("active symbols %d != price map size %d", s.ActiveSymbols, len(s.CurrentPrices))
	}
	if s.VolatilityRegime == "" || s.Session == "" {
		t.Fatalf("summary missing state: %+v", s)
	}
}

func TestSummaryDuringProduction(t *testing.T) {
	g := newTestGenerator(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			g.NextEvent()
		}
	}()

	for i := 0; i < 500; i++ {
		s := g.Summary()
		if s.EventsGenerated > 500 {
			t.Errorf("counter overran: %d", s.EventsGenerated)
			break
		}
		for sym, price := range s.CurrentPrices {
			if price <= 0 {
				t.Errorf("torn read: %s price %v", sym, price)
			}
		}
	}
	<-done

	if got := g.Summary().EventsGenerated; got != 500 {
		t.Fatalf("events generated = %d, want 500", got)
	}
}
