// Package portfolio synthesises a random market, samples random portfolios
// over it and extracts the efficient frontier.
package portfolio

import (
	"fmt"
	"math"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/rng"
)

// Config describes a synthetic market and how densely to sample it.
type Config struct {
	NumAssets    int        `json:"num_assets"`
	RiskFreeRate float64    `json:"risk_free_rate"`
	ReturnRange  [2]float64 `json:"return_range"`
	VolRange     [2]float64 `json:"vol_range"`
	Samples      int        `json:"samples"`
	Bins         int        `json:"bins"`
}

// DefaultConfig returns 5 assets, rf 2%, returns in [5%,15%], vols in
// [10%,25%], 5000 portfolios and 100 frontier bins.
func DefaultConfig() Config {
	return Config{
		NumAssets:    5,
		RiskFreeRate: 0.02,
		ReturnRange:  [2]float64{0.05, 0.15},
		VolRange:     [2]float64{0.10, 0.25},
		Samples:      5000,
		Bins:         100,
	}
}

// MaxSamples bounds a single sampling run.
const MaxSamples = 1_000_000

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.NumAssets < domain.MinAssets || c.NumAssets > domain.MaxAssets {
		return fmt.Errorf("%w: num_assets must be in [%d, %d], got %d", domain.ErrInvalidParams, domain.MinAssets, domain.MaxAssets, c.NumAssets)
	}
	if math.IsNaN(c.RiskFreeRate) || math.IsInf(c.RiskFreeRate, 0) {
		return fmt.Errorf("%w: risk_free_rate must be finite", domain.ErrInvalidParams)
	}
	if !(c.ReturnRange[0] <= c.ReturnRange[1]) {
		return fmt.Errorf("%w: return_range must be ordered", domain.ErrInvalidParams)
	}
	if !(c.VolRange[0] > 0 && c.VolRange[0] <= c.VolRange[1]) {
		return fmt.Errorf("%w: vol_range must be positive and ordered", domain.ErrInvalidParams)
	}
	if c.Samples < 1 || c.Samples > MaxSamples {
		return fmt.Errorf("%w: samples must be in [1, %d], got %d", domain.ErrInvalidParams, MaxSamples, c.Samples)
	}
	if c.Bins < 1 {
		return fmt.Errorf("%w: bins must be >= 1, got %d", domain.ErrInvalidParams, c.Bins)
	}
	return nil
}

// GenerateAssets draws NumAssets expected returns and then NumAssets
// volatilities uniformly from the configured ranges. Assets are named
// "Asset A", "Asset B", and so on.
func GenerateAssets(cfg Config, src rng.Source) (domain.AssetSet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := cfg.NumAssets
	assets := make(domain.AssetSet, n)
	for i := range assets {
		assets[i].Name = "Asset " + string(rune('A'+i))
		assets[i].ExpectedReturn = cfg.ReturnRange[0] + src.Uniform()*(cfg.ReturnRange[1]-cfg.ReturnRange[0])
	}
	for i := range assets {
		assets[i].Volatility = cfg.VolRange[0] + src.Uniform()*(cfg.VolRange[1]-cfg.VolRange[0])
	}
	return assets, nil
}
