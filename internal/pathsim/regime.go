package pathsim

import (
	"fmt"
	"math"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/rng"
)

// RegimeOptions configures the regime-switching walk.
type RegimeOptions struct {
	Points        int     `json:"points"`         // series length including the start
	Start         float64 `json:"start"`          // starting price
	Floor         float64 `json:"floor"`          // prices are clamped at this level
	TurbulentProb float64 `json:"turbulent_prob"` // probability a new regime is turbulent
}

// DefaultRegimeOptions returns 4000 points from 100 with a floor of 10 and a
// 30% chance of turbulence.
func DefaultRegimeOptions() RegimeOptions {
	return RegimeOptions{
		Points:        4000,
		Start:         100,
		Floor:         10,
		TurbulentProb: 0.3,
	}
}

// MaxRegimePoints bounds a single walk.
const MaxRegimePoints = 1_000_000

// Validate checks the options.
func (opts RegimeOptions) Validate() error {
	if opts.Points < 2 || opts.Points > MaxRegimePoints {
		return fmt.Errorf("%w: points must be in [2, %d], got %d", domain.ErrInvalidParams, MaxRegimePoints, opts.Points)
	}
	if opts.TurbulentProb < 0 || opts.TurbulentProb > 1 || math.IsNaN(opts.TurbulentProb) {
		return fmt.Errorf("%w: turbulent probability must be in [0, 1]", domain.ErrInvalidParams)
	}
	if !isFinite(opts.Start) || !isFinite(opts.Floor) {
		return fmt.Errorf("%w: start and floor must be finite, got %v and %v", domain.ErrInvalidParams, opts.Start, opts.Floor)
	}
	if opts.Start < opts.Floor {
		return fmt.Errorf("%w: start %v below floor %v", domain.ErrInvalidParams, opts.Start, opts.Floor)
	}
	return nil
}

// Regime draw ranges.
const (
	turbulentVolBase  = 1.0
	turbulentVolRange = 1.5
	calmVolBase       = 0.1
	calmVolRange      = 0.3
	regimeMinLength   = 50
	regimeLengthRange = 300
)

// SimulateRegimeWalk generates an arithmetic walk whose volatility switches
// between calm and turbulent regimes, producing volatility clustering.
func SimulateRegimeWalk(opts RegimeOptions, src rng.Source) (*domain.RegimeWalk, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	prices := make([]float64, opts.Points)
	prices[0] = opts.Start

	var regimes []domain.Regime
	remaining := 0
	vol := 0.0
	for i := 1; i < opts.Points; i++ {
		if remaining <= 0 {
			turbulent := src.Uniform() > 1-opts.TurbulentProb
			if turbulent {
				vol = src.Uniform()*turbulentVolRange + turbulentVolBase
			} else {
				vol = src.Uniform()*calmVolRange + calmVolBase
			}
			remaining = int(math.Floor(src.Uniform()*regimeLengthRange + regimeMinLength))
			regimes = append(regimes, domain.Regime{
				Start:      i,
				Length:     min(remaining, opts.Points-i),
				Volatility: vol,
				Turbulent:  turbulent,
			})
		}
		remaining--

		price := prices[i-1] + src.Normal(0, 1)*vol
		if price < opts.Floor {
			price = opts.Floor
		}
		prices[i] = price
	}

	return &domain.RegimeWalk{Prices: prices, Regimes: regimes}, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
