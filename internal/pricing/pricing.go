// Package pricing prices European options in closed form.
package pricing

import (
	"math"

	"diffusion-lab/internal/domain"
)

// Abramowitz & Stegun 26.2.17 coefficients.
const (
	cdfP  = 0.2316419
	cdfB1 = 0.319381530
	cdfB2 = -0.356563782
	cdfB3 = 1.781477937
	cdfB4 = -1.821255978
	cdfB5 = 1.330274429

	invSqrt2Pi = 0.3989422804014327
)

// CDFMaxError is the absolute error bound of NormalCDF.
const CDFMaxError = 7.5e-8

// NormalCDF approximates the standard normal CDF with Abramowitz & Stegun 26.2.17.
func NormalCDF(x float64) float64 {
	t := 1 / (1 + cdfP*math.Abs(x))
	d := invSqrt2Pi * math.Exp(-x*x/2)
	prob := d * t * (cdfB1 + t*(cdfB2+t*(cdfB3+t*(cdfB4+t*cdfB5))))
	if x > 0 {
		prob = 1 - prob
	}
	return prob
}

// Price returns Black-Scholes call and put prices.
//
// Price does not validate: inputs outside the domain produce NaN or Inf.
// Callers validate with OptionInputs.Validate at the boundary.
func Price(in domain.OptionInputs) domain.OptionQuote {
	sqrtT := math.Sqrt(in.T)
	d1 := (math.Log(in.S/in.K) + (in.R+in.Sigma*in.Sigma/2)*in.T) / (in.Sigma * sqrtT)
	d2 := d1 - in.Sigma*sqrtT
	discounted := in.K * math.Exp(-in.R*in.T)

	return domain.OptionQuote{
		Call: in.S*NormalCDF(d1) - discounted*NormalCDF(d2),
		Put:  discounted*NormalCDF(-d2) - in.S*NormalCDF(-d1),
		D1:   d1,
		D2:   d2,
	}
}

// ParityGap returns (call - put) - (S - K*exp(-rT)).
func ParityGap(in domain.OptionInputs, q domain.OptionQuote) float64 {
	return (q.Call - q.Put) - (in.S - in.K*math.Exp(-in.R*in.T))
}
