package pricing

import (
	"errors"
	"math"
	"testing"

	"RiskPulse/internal/domain/models"
)

const (
	spot   = 19500.0
	strike = 19500.0
	expiry = 0.0822 // ~30 days
	vol    = 0.18
	rate   = 0.065
)

func TestPutCallParity(t *testing.T) {
	b := NewBlack76()
	call, err := b.PriceAndGreeks(spot, strike, expiry, vol, rate, models.OptionCall)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	put, err := b.PriceAndGreeks(spot, strike, expiry, vol, rate, models.OptionPut)
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	discount := math.Exp(-rate * expiry)
	want := discount * (spot - strike)
	if diff := math.Abs((call.Price - put.Price) - want); diff > 1e-6 {
		t.Fatalf("parity violated: call-put=%v want=%v", call.Price-put.Price, want)
	}
}

func TestAtTheMoneyCall(t *testing.T) {
	b := NewBlack76()
	g, err := b.PriceAndGreeks(spot, strike, expiry, vol, rate, models.OptionCall)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	// ATM call price ~ 0.4 * F * sigma * sqrt(T) (discounted); sanity band.
	approx := 0.4 * spot * vol * math.Sqrt(expiry)
	if g.Price < approx*0.9 || g.Price > approx*1.1 {
		t.Fatalf("price %v outside sanity band around %v", g.Price, approx)
	}
	discount := math.Exp(-rate * expiry)
	if g.Delta <= 0 || g.Delta > discount {
		t.Fatalf("call delta %v outside (0, %v]", g.Delta, discount)
	}
	if g.Theta >= 0 {
		t.Fatalf("long call theta should be negative, got %v", g.Theta)
	}
	if g.Rho <= 0 {
		t.Fatalf("call rho should be positive, got %v", g.Rho)
	}
}

func TestPutDeltaRange(t *testing.T) {
	b := NewBlack76()
	g, err := b.PriceAndGreeks(spot, strike, expiry, vol, rate, models.OptionPut)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	discount := math.Exp(-rate * expiry)
	if g.Delta >= 0 || g.Delta < -discount {
		t.Fatalf("put delta %v outside [-%v, 0)", g.Delta, discount)
	}
	if g.Rho >= 0 {
		t.Fatalf("put rho should be negative, got %v", g.Rho)
	}
}

func TestGammaVegaNonNegative(t *testing.T) {
	b := NewBlack76()
	cases := []struct {
		spot, strike, t, vol float64
	}{
		{19500, 19500, 0.0822, 0.18},
		{100, 120, 0.02, 0.45},
		{25000, 18000, 0.25, 0.10},
		{0.5, 0.6, 1.0, 0.80},
	}
	for _, c := range cases {
		for _, kind := range []models.OptionKind{models.OptionCall, models.OptionPut} {
			g, err := b.PriceAndGreeks(c.spot, c.strike, c.t, c.vol, rate, kind)
			if err != nil {
				t.Fatalf("PriceAndGreeks(%v): %v", c, err)
			}
			if g.Gamma < 0 {
				t.Fatalf("gamma %v < 0 for %v %s", g.Gamma, c, kind)
			}
			if g.Vega < 0 {
				t.Fatalf("vega %v < 0 for %v %s", g.Vega, c, kind)
			}
			if !finite(g) {
				t.Fatalf("non-finite result %+v for %v %s", g, c, kind)
			}
		}
	}
}

func TestGammaMatchesCallPut(t *testing.T) {
	b := NewBlack76()
	call, _ := b.PriceAndGreeks(spot, 19000, expiry, vol, rate, models.OptionCall)
	put, _ := b.PriceAndGreeks(spot, 19000, expiry, vol, rate, models.OptionPut)
	if math.Abs(call.Gamma-put.Gamma) > 1e-12 {
		t.Fatalf("gamma differs between call %v and put %v", call.Gamma, put.Gamma)
	}
	if math.Abs(call.Vega-put.Vega) > 1e-12 {
		t.Fatalf("vega differs between call %v and put %v", call.Vega, put.Vega)
	}
}

func TestInvalidInput(t *testing.T) {
	b := NewBlack76()
	cases := []struct {
		name                 string
		spot, strike, t, vol float64
	}{
		{"zero expiry", spot, strike, 0, vol},
		{"negative expiry", spot, strike, -0.1, vol},
		{"zero vol", spot, strike, expiry, 0},
		{"negative vol", spot, strike, expiry, -0.2},
		{"zero spot", 0, strike, expiry, vol},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := b.PriceAndGreeks(c.spot, c.strike, c.t, c.vol, rate, models.OptionCall)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func finite(g models.OptionGreeks) bool {
	for _, v := range []float64{g.Price, g.Delta, g.Gamma, g.Theta, g.Vega, g.Rho} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
