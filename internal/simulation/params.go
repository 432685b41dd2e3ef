package simulation

import (
	"fmt"

	"diffusion-lab/internal/diffusion"
	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/metrics"
	"diffusion-lab/internal/pathsim"
	"diffusion-lab/internal/portfolio"
)

// Requests embed their params and an optional seed. A nil seed draws a fresh
// one from the OS. The HTTP and live layers decode JSON over a Default*Request,
// so omitted fields keep their defaults.

// BachelierParams are the inputs of an arithmetic Brownian ensemble run.
type BachelierParams struct {
	domain.DiffusionParams
	HistogramBins int `json:"histogram_bins"`
}

// BachelierRequest requests RunBachelier.
type BachelierRequest struct {
	Seed *uint64 `json:"seed,omitempty"`
	BachelierParams
}

// DefaultBachelierRequest returns S0=100, sigma=20, T=1, dt=0.01, 200 paths and 50 histogram bins.
func DefaultBachelierRequest() BachelierRequest {
	return BachelierRequest{BachelierParams: BachelierParams{
		DiffusionParams: domain.DefaultDiffusionParams(),
		HistogramBins:   metrics.DefaultHistogramBins,
	}}
}

// DefaultOverlayPaths is the overlay ensemble size used when one is requested without a size.
const DefaultOverlayPaths = 200

// DiffusionParams are the inputs of a heat-profile run.
type DiffusionParams struct {
	T            float64                 `json:"t"`
	Sigma        float64                 `json:"sigma"`
	Mu           float64                 `json:"mu"`
	Condition    domain.InitialCondition `json:"condition"`
	Domain       domain.ProfileDomain    `json:"domain"`
	OverlayPaths int                     `json:"overlay_paths"` // 0 disables the Monte-Carlo overlay
}

// DiffusionRequest requests RunDiffusion.
type DiffusionRequest struct {
	Seed *uint64 `json:"seed,omitempty"`
	DiffusionParams
}

// DefaultDiffusionRequest returns a point mass at 100 with sigma=1 at t=1 and no overlay.
func DefaultDiffusionRequest() DiffusionRequest {
	return DiffusionRequest{DiffusionParams: DiffusionParams{
		T:         1,
		Sigma:     1,
		Condition: domain.ConditionPointMass,
		Domain:    domain.DefaultProfileDomain(),
	}}
}

// FractionalParams are the inputs of a fractional Brownian run.
type FractionalParams struct {
	Levels      int     `json:"levels"`
	Hurst       float64 `json:"hurst"`
	MarketProxy bool    `json:"market_proxy"` // also generate the H=0.55 reference series
}

// FractionalRequest requests RunFractional.
type FractionalRequest struct {
	Seed *uint64 `json:"seed,omitempty"`
	FractionalParams
}

// DefaultFractionalRequest returns 9 levels (513 points), H=0.5 and the market proxy.
func DefaultFractionalRequest() FractionalRequest {
	return FractionalRequest{FractionalParams: FractionalParams{
		Levels:      pathsim.MarketProxyLevels,
		Hurst:       0.5,
		MarketProxy: true,
	}}
}

// RegimeParams are the inputs of a regime-switching walk run.
type RegimeParams struct {
	pathsim.RegimeOptions
}

// RegimeRequest requests RunRegimeWalk.
type RegimeRequest struct {
	Seed *uint64 `json:"seed,omitempty"`
	RegimeParams
}

// DefaultRegimeRequest returns 4000 points from 100 with a floor of 10.
func DefaultRegimeRequest() RegimeRequest {
	return RegimeRequest{RegimeParams: RegimeParams{RegimeOptions: pathsim.DefaultRegimeOptions()}}
}

// PortfolioParams are the inputs of a portfolio optimisation run.
type PortfolioParams struct {
	portfolio.Config
}

// PortfolioRequest requests RunPortfolio.
type PortfolioRequest struct {
	Seed *uint64 `json:"seed,omitempty"`
	PortfolioParams
}

// DefaultPortfolioRequest returns the default synthetic market.
func DefaultPortfolioRequest() PortfolioRequest {
	return PortfolioRequest{PortfolioParams: PortfolioParams{Config: portfolio.DefaultConfig()}}
}

// MaxHistogramBins bounds the terminal histogram.
const MaxHistogramBins = 10_000

// Validate checks the ensemble params and the histogram bin count.
func (p BachelierParams) Validate() error {
	if err := p.DiffusionParams.Validate(); err != nil {
		return err
	}
	if p.HistogramBins < 1 || p.HistogramBins > MaxHistogramBins {
		return fmt.Errorf("%w: histogram_bins must be in [1, %d], got %d", domain.ErrInvalidParams, MaxHistogramBins, p.HistogramBins)
	}
	return nil
}

// Validate checks the profile inputs and the overlay size.
func (p DiffusionParams) Validate() error {
	if err := diffusion.ValidateInputs(p.T, p.Sigma, p.Mu, p.Condition, p.Domain); err != nil {
		return err
	}
	if p.OverlayPaths < 0 || p.OverlayPaths > domain.MaxPaths {
		return fmt.Errorf("%w: overlay_paths must be in [0, %d], got %d", domain.ErrInvalidParams, domain.MaxPaths, p.OverlayPaths)
	}
	return nil
}

// Validate checks the level count and Hurst exponent.
func (p FractionalParams) Validate() error {
	return pathsim.ValidateFractional(p.Levels, p.Hurst)
}

func seedPtr(s uint64) *uint64 { return &s }
