package simulator

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"RiskPulse/internal/domain/models"
	"RiskPulse/internal/pricing"
)

var entityTypes = []string{
	"transaction", "user", "merchant", "portfolio", "order", "option_chain", "futures",
}

// NSE-listed symbols the simulator trades.
var symbols = []string{
	"NIFTY", "BANKNIFTY", "RELIANCE", "TCS", "INFY", "HDFCBANK",
	"ICICIBANK", "SBIN", "HINDUNILVR", "ITC", "LT", "BAJFINANCE",
	"MARUTI", "ASIANPAINT", "NESTLEIND", "KOTAKBANK",
}

var baseVols = map[string]float64{
	"NIFTY":    0.15,
	"BANKNIFTY": 0.18,
	"RELIANCE": 0.25,
	"TCS":      0.22,
	"INFY":     0.28,
	"HDFCBANK": 0.30,
}

var volMultipliers = map[string]float64{
	"normal":   1.0,
	"volatile": 2.0,
	"trending": 1.2,
	"gap_up":   1.5,
	"gap_down": 1.8,
	"sideways": 0.8,
}

const riskFreeRate = 0.065 // RBI repo rate

// Generator produces synthetic entity events with NSE-like market behavior:
// per-symbol random-walk prices snapped to exchange ticks, volatility regime
// switching, session awareness and Black-76 Greeks. One goroutine produces
// events; internal state is mutex-guarded so Summary can be read from other
// goroutines while production runs.
type Generator struct {
	pricer *pricing.Black76
	now    func() time.Time

	mu         sync.Mutex
	rng        *rand.Rand
	counter    uint64
	prices     map[string]float64
	lastChange map[string]float64
	regime     string
	session    string
}

type Option func(*Generator)

// WithSeed makes the event stream deterministic, for tests.
func WithSeed(seed int64) Option {
	return func(g *Generator) { g.rng = rand.New(rand.NewSource(seed)) }
}

// WithClock overrides the wall clock used for session detection.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New creates a Generator with randomized initial prices.
func New(pricer *pricing.Black76, opts ...Option) *Generator {
	g := &Generator{
		pricer:     pricer,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		now:        time.Now,
		prices:     make(map[string]float64, len(symbols)),
		lastChange: make(map[string]float64, len(symbols)),
		regime:     "normal",
	}
	for _, opt := range opts {
		opt(g)
	}
	for _, s := range symbols {
		g.prices[s] = 100 + g.rng.Float64()*24900
	}
	g.session = g.marketSession()
	return g
}

// NextEvent produces the next synthetic market event.
func (g *Generator) NextEvent() *models.MarketEvent {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.counter++

	entityType := entityTypes[g.rng.Intn(len(entityTypes))]
	entityID := fmt.Sprintf("%s_%d", entityType, g.counter)
	symbol := symbols[g.rng.Intn(len(symbols))]

	g.session = g.marketSession()
	if g.rng.Float64() < 0.05 {
		g.regime = []string{"normal", "volatile", "trending"}[g.rng.Intn(3)]
	}

	spot, change, changePct := g.updatePrice(symbol)
	greeks := g.optionFeatures(symbol, spot)

	features := models.FeatureSet{
		// Core market data
		"symbol":           symbol,
		"spot_price":       spot,
		"price_change":     change,
		"price_change_pct": changePct,

		// Microstructure
		"market_session":    g.session,
		"volatility_regime": g.regime,
		"bid_ask_spread":    round(0.05+g.rng.Float64()*0.45, 2),
		"volume":            100 + g.rng.Intn(49900),
		"liquidity_score":   round(0.3+g.rng.Float64()*0.7, 3),

		// Behavioral
		"velocity":      1 + g.rng.Intn(200),
		"amount":        round(10+g.rng.Float64()*49990, 2),
		"anomaly_score": g.anomalyScore(),
		"reputation":    round(0.2+g.rng.Float64()*0.8, 3),
		"unusual_pattern": g.rng.Float64() < g.unusualPatternRate(),
		"blacklist_match": g.rng.Float64() < 0.02,
	}
	for k, v := range greeks {
		features[k] = v
	}
	if entityType == "option_chain" || entityType == "futures" {
		features["open_interest"] = 1000 + g.rng.Intn(99000)
	}

	return &models.MarketEvent{
		EntityID:   entityID,
		EntityType: entityType,
		Features:   features,
		Timestamp:  g.now().UTC(),
	}
}

// updatePrice advances the symbol's bounded random walk, snapped to the
// exchange tick size, and returns (price, change, change pct).
func (g *Generator) updatePrice(symbol string) (float64, float64, float64) {
	current := g.prices[symbol]

	baseVol := 0.02
	if g.regime != "normal" {
		baseVol = 0.05
	}
	drift := -0.001 + g.rng.Float64()*0.002
	shock := g.rng.NormFloat64() * baseVol
	change := current * (drift + shock)

	// NSE tick sizes: 0.05 under 1000, 0.10 above.
	tick := 0.05
	if current >= 1000 {
		tick = 0.10
	}
	change = math.Round(change/tick) * tick

	price := math.Max(current+change, 0.05)
	g.prices[symbol] = price
	g.lastChange[symbol] = change

	return price, change, change / current * 100
}

// optionFeatures prices an ATM option on the symbol and returns its Greeks as
// feature keys, substituting the moneyness approximation on invalid inputs.
func (g *Generator) optionFeatures(symbol string, spot float64) models.FeatureSet {
	strike := math.Max(50, math.Round(spot/50)*50) // nearest 50, NSE convention
	expiry := 0.02 + g.rng.Float64()*0.23          // one week to three months

	baseVol, ok := baseVols[symbol]
	if !ok {
		baseVol = 0.25
	}
	mult, ok := volMultipliers[g.regime]
	if !ok {
		mult = 1.0
	}
	vol := baseVol * mult

	kind := models.OptionCall
	if g.rng.Intn(2) == 1 {
		kind = models.OptionPut
	}

	out := models.FeatureSet{
		"implied_vol":    round(vol, 4),
		"time_to_expiry": round(expiry, 4),
		"strike_price":   strike,
		"option_type":    string(kind),
	}

	greeks, err := g.pricer.PriceAndGreeks(spot, strike, expiry, vol, riskFreeRate, kind)
	if err != nil {
		g.fillApproxGreeks(out, spot, strike, expiry, vol)
		return out
	}
	out["delta"] = round(greeks.Delta, 4)
	out["gamma"] = round(greeks.Gamma, 6)
	out["theta"] = round(greeks.Theta, 4)
	out["vega"] = round(greeks.Vega, 4)
	out["rho"] = round(greeks.Rho, 4)
	out["option_price"] = round(greeks.Price, 2)
	return out
}

// fillApproxGreeks is the simplified moneyness-based fallback used when the
// closed-form model rejects its inputs.
func (g *Generator) fillApproxGreeks(out models.FeatureSet, spot, strike, expiry, vol float64) {
	moneyness := spot / strike
	out["delta"] = round(math.Max(-0.99, math.Min(0.99, 2*(moneyness-1))), 4)
	out["gamma"] = round(math.Max(0.0001, 0.1*math.Exp(-10*(moneyness-1)*(moneyness-1))), 6)
	out["theta"] = round(-0.05*vol*vol*(strike/365), 4)
	out["vega"] = round(0.01*strike*math.Sqrt(expiry)*math.Exp(-0.5*(moneyness-1)*(moneyness-1)), 4)
	out["rho"] = round(0.01*strike*expiry*math.Max(0, moneyness-0.5), 4)
}

func (g *Generator) anomalyScore() float64 {
	scale := 1.0
	if g.regime == "volatile" {
		scale = 2.0
	}
	return round(math.Min(g.rng.Float64()*scale, 1.0), 3)
}

func (g *Generator) unusualPatternRate() float64 {
	if g.regime == "volatile" {
		return 0.3
	}
	return 0.1
}

// marketSession derives the session from IST wall-clock time: 9:15-15:30 is
// open, 9:00-9:15 pre-open, anything else closed.
func (g *Generator) marketSession() string {
	ist := time.FixedZone("IST", 5*3600+1800)
	now := g.now().In(ist)
	minutes := now.Hour()*60 + now.Minute()

	switch {
	case minutes >= 9*60+15 && minutes <= 15*60+30:
		return "open"
	case minutes >= 9*60 && minutes < 9*60+15:
		return "pre_open"
	default:
		return "closed"
	}
}

// Summary reports the generator's current internal state. Safe to call
// while another goroutine produces events.
func (g *Generator) Summary() models.MarketSummary {
	g.mu.Lock()
	defer g.mu.Unlock()

	prices := make(map[string]float64, len(g.prices))
	for k, v := range g.prices {
		prices[k] = v
	}
	return models.MarketSummary{
		Session:          g.session,
		VolatilityRegime: g.regime,
		ActiveSymbols:    len(symbols),
		CurrentPrices:    prices,
		EventsGenerated:  g.counter,
		Timestamp:        g.now().UTC(),
	}
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
