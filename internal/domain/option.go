package domain

import "fmt"

// OptionInputs are the Black-Scholes inputs for a European option pair.
type OptionInputs struct {
	S     float64 `json:"s"`     // spot
	K     float64 `json:"k"`     // strike
	T     float64 `json:"t"`     // years to expiry
	R     float64 `json:"r"`     // continuously compounded risk-free rate
	Sigma float64 `json:"sigma"` // annualised volatility
}

// OptionQuote is the priced call/put pair.
type OptionQuote struct {
	Call float64 `json:"call"`
	Put  float64 `json:"put"`
	D1   float64 `json:"d1"`
	D2   float64 `json:"d2"`
}

// Validate checks the Black-Scholes domain: S, K, T and sigma must be
// positive and finite, r must be finite.
func (in OptionInputs) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{{"s", in.S}, {"k", in.K}, {"t", in.T}, {"sigma", in.Sigma}} {
		if !isFinite(f.v) || f.v <= 0 {
			return fmt.Errorf("%w: %s must be > 0, got %v", ErrInvalidParams, f.name, f.v)
		}
	}
	if !isFinite(in.R) {
		return fmt.Errorf("%w: r must be finite", ErrInvalidParams)
	}
	return nil
}

// DefaultOptionInputs returns an at-the-money one-year option at 5% and 20% vol.
func DefaultOptionInputs() OptionInputs {
	return OptionInputs{S: 100, K: 100, T: 1, R: 0.05, Sigma: 0.2}
}
