package pricing

import (
	"errors"
	"fmt"
	"math"

	"RiskPulse/internal/domain/models"
)

// ErrInvalidInput is returned when time to expiry or volatility is non-positive.
// Callers may substitute a moneyness-based approximation on this error.
var ErrInvalidInput = errors.New("pricing: invalid input")

// Black76 prices European options on futures and computes the Greeks in
// closed form:
//
//	Call: C = e^(-r*T) * [F*N(d1) - K*N(d2)]
//	Put:  P = e^(-r*T) * [K*N(-d2) - F*N(-d1)]
//	d1 = [ln(F/K) + (sigma^2/2)*T] / (sigma*sqrt(T)),  d2 = d1 - sigma*sqrt(T)
//
// Theta is per calendar day, vega per 1 vol point, rho per 1% rate move.
type Black76 struct{}

// NewBlack76 returns a stateless Black-76 calculator.
func NewBlack76() *Black76 { return &Black76{} }

// PriceAndGreeks computes the option price and all Greeks for one contract.
func (b *Black76) PriceAndGreeks(spot, strike, timeToExpiry, volatility, riskFreeRate float64, kind models.OptionKind) (models.OptionGreeks, error) {
	d1, d2, err := d1d2(spot, strike, timeToExpiry, volatility)
	if err != nil {
		return models.OptionGreeks{}, err
	}
	if kind != models.OptionCall && kind != models.OptionPut {
		return models.OptionGreeks{}, fmt.Errorf("%w: option kind %q", ErrInvalidInput, kind)
	}

	discount := math.Exp(-riskFreeRate * timeToExpiry)
	sqrtT := math.Sqrt(timeToExpiry)

	var price, delta, theta, rho float64
	if kind == models.OptionCall {
		price = discount * (spot*normCDF(d1) - strike*normCDF(d2))
		delta = discount * normCDF(d1)
		theta = (-(discount*spot*normPDF(d1)*volatility)/(2*sqrtT) - riskFreeRate*discount*strike*normCDF(d2)) / 365
		rho = timeToExpiry * discount * strike * normCDF(d2) / 100
	} else {
		price = discount * (strike*normCDF(-d2) - spot*normCDF(-d1))
		delta = -discount * normCDF(-d1)
		theta = (-(discount*spot*normPDF(d1)*volatility)/(2*sqrtT) + riskFreeRate*discount*strike*normCDF(-d2)) / 365
		rho = -timeToExpiry * discount * strike * normCDF(-d2) / 100
	}

	gamma := discount * normPDF(d1) / (spot * volatility * sqrtT)
	vega := discount * spot * normPDF(d1) * sqrtT / 100

	return models.OptionGreeks{
		Price: price,
		Delta: delta,
		Gamma: gamma,
		Theta: theta,
		Vega:  vega,
		Rho:   rho,
	}, nil
}

func d1d2(spot, strike, timeToExpiry, volatility float64) (float64, float64, error) {
	if timeToExpiry <= 0 {
		return 0, 0, fmt.Errorf("%w: time to expiry must be positive", ErrInvalidInput)
	}
	if volatility <= 0 {
		return 0, 0, fmt.Errorf("%w: volatility must be positive", ErrInvalidInput)
	}
	if spot <= 0 || strike <= 0 {
		return 0, 0, fmt.Errorf("%w: spot and strike must be positive", ErrInvalidInput)
	}

	sqrtT := math.Sqrt(timeToExpiry)
	d1 := (math.Log(spot/strike) + (volatility*volatility/2)*timeToExpiry) / (volatility * sqrtT)
	d2 := d1 - volatility*sqrtT
	return d1, d2, nil
}

// normCDF is the standard normal cumulative distribution function.
func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// normPDF is the standard normal density.
func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}
