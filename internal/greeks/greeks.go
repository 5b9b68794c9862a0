// Package greeks prices option legs with the closed-form Black-Scholes model
// and nets them into structure-level sensitivities.
package greeks

import (
	"math"
	"time"
)

const (
	// DefaultRiskFreeRate is the annualized risk-free rate assumed by the order book UI.
	DefaultRiskFreeRate = 0.04

	// DefaultVolatility is the assumed annualized volatility for crypto underlyings.
	// There is no live IV surface, so every leg is priced with it.
	DefaultVolatility = 0.65

	// secondsPerYear uses a 365-day year.
	secondsPerYear = 31536000

	// minTimeToExpiry is roughly 8.8 hours expressed in years.
	minTimeToExpiry = 0.001

	daysPerYear = 365
)

// Params holds the market assumptions shared by every leg of a pricing call.
type Params struct {
	RiskFreeRate float64 `json:"riskFreeRate" mapstructure:"risk_free_rate"`
	Volatility   float64 `json:"volatility" mapstructure:"volatility"`
}

// DefaultParams returns the rate and volatility the system has always used.
func DefaultParams() Params {
	return Params{
		RiskFreeRate: DefaultRiskFreeRate,
		Volatility:   DefaultVolatility,
	}
}

// Greeks are the sensitivities of one leg or of a whole structure.
// Vega is per volatility point and Theta is per calendar day.
// IV is the volatility used, expressed as a percentage.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
	Theta float64 `json:"theta"`
	IV    float64 `json:"iv"`
}

// Degenerate returns the zero-sensitivity record reported whenever the
// closed form is undefined.
func Degenerate(vol float64) Greeks {
	return Greeks{IV: vol * 100}
}

// NormCDF is the standard normal cumulative distribution function.
func NormCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// NormPDF is the standard normal density.
func NormPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

// Leg prices a single vanilla option.
//
// S is spot, K strike, T years to expiry, r the risk-free rate and v the
// volatility. Non-positive T, v or S yield Degenerate(v).
func Leg(S, K, T, r, v float64, isCall bool) Greeks {
	if T <= 0 || v <= 0 || S <= 0 {
		return Degenerate(v)
	}

	sqrtT := math.Sqrt(T)
	d1 := (math.Log(S/K) + (r+v*v/2)*T) / (v * sqrtT)
	d2 := d1 - v*sqrtT
	pdf := NormPDF(d1)

	delta := NormCDF(d1)
	nd2 := NormCDF(d2)
	if !isCall {
		delta--
		nd2 = NormCDF(-d2)
	}

	theta := -S*pdf*v/(2*sqrtT) - r*K*math.Exp(-r*T)*nd2

	return Greeks{
		Delta: delta,
		Gamma: pdf / (S * v * sqrtT),
		Vega:  S * pdf * sqrtT / 100,
		Theta: theta / daysPerYear,
		IV:    v * 100,
	}
}

// TimeToExpiry converts an expiry timestamp into years from now.
// The result never drops below minTimeToExpiry so expired or nearly expired
// options still produce finite Greeks.
func TimeToExpiry(expiry int64, now time.Time) float64 {
	nowSec := float64(now.UnixNano()) / float64(time.Second)
	return math.Max((float64(expiry)-nowSec)/secondsPerYear, minTimeToExpiry)
}
