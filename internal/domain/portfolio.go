package domain

import (
	"encoding/json"
	"math"
)

// Asset is a synthetic asset with annualised expected return and volatility.
type Asset struct {
	Name           string  `json:"name"`
	ExpectedReturn float64 `json:"expected_return"`
	Volatility     float64 `json:"volatility"`
}

// AssetSet is an ordered set of assets.
type AssetSet []Asset

// Returns returns the expected return vector.
func (s AssetSet) Returns() []float64 {
	out := make([]float64, len(s))
	for i, a := range s {
		out[i] = a.ExpectedReturn
	}
	return out
}

// Volatilities returns the volatility vector.
func (s AssetSet) Volatilities() []float64 {
	out := make([]float64, len(s))
	for i, a := range s {
		out[i] = a.Volatility
	}
	return out
}

// MaxReturnIndex returns the index of the highest-return asset (first on ties),
// or -1 for an empty set.
func (s AssetSet) MaxReturnIndex() int {
	best := -1
	for i, a := range s {
		if best < 0 || a.ExpectedReturn > s[best].ExpectedReturn {
			best = i
		}
	}
	return best
}

// Asset count bounds.
const (
	MinAssets = 3
	MaxAssets = 10
)

// CovarianceMatrix is a symmetric n x n covariance matrix.
type CovarianceMatrix [][]float64

// Size returns n.
func (c CovarianceMatrix) Size() int { return len(c) }

// PortfolioSample is one Monte-Carlo portfolio.
type PortfolioSample struct {
	Weights    []float64 `json:"weights"`
	Return     float64   `json:"return"`
	Volatility float64   `json:"volatility"`
	Sharpe     float64   `json:"sharpe"`
}

// MarshalJSON encodes a non-finite Sharpe ratio as null.
func (s PortfolioSample) MarshalJSON() ([]byte, error) {
	type plain PortfolioSample
	var sharpe *float64
	if !math.IsNaN(s.Sharpe) && !math.IsInf(s.Sharpe, 0) {
		sharpe = &s.Sharpe
	}
	return json.Marshal(struct {
		plain
		Sharpe *float64 `json:"sharpe"`
	}{plain: plain(s), Sharpe: sharpe})
}

// PortfolioCloud is the result of portfolio sampling.
type PortfolioCloud struct {
	Samples         []PortfolioSample `json:"samples"`
	MaxSharpe       *PortfolioSample  `json:"max_sharpe,omitempty"` // nil when no Sharpe ratio is finite
	MinVolatility   *PortfolioSample  `json:"min_volatility,omitempty"`
	NonFiniteSharpe int               `json:"non_finite_sharpe"` // samples excluded from max-Sharpe tracking
}

// FrontierPoint is a (volatility, return) pair.
type FrontierPoint struct {
	Volatility float64 `json:"volatility"`
	Return     float64 `json:"return"`
}

// CapitalMarketLine is the ray from the risk-free rate through the tangency portfolio.
type CapitalMarketLine struct {
	RiskFree float64         `json:"risk_free"`
	Slope    float64         `json:"slope"`
	Points   []FrontierPoint `json:"points"`
}

// Frontier is the extracted efficient frontier, sorted by return ascending.
type Frontier struct {
	Points []FrontierPoint    `json:"points"`
	CML    *CapitalMarketLine `json:"cml,omitempty"`
}
