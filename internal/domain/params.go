package domain

import (
	"fmt"
	"math"
)

// InitialCondition selects the starting distribution of a diffusion profile.
type InitialCondition string

// Initial condition constants
const (
	ConditionPointMass InitialCondition = "point_mass"
	ConditionTwoPoint  InitialCondition = "two_point"
	ConditionStep      InitialCondition = "step"
)

// Valid reports whether c is a known initial condition.
func (c InitialCondition) Valid() bool {
	switch c {
	case ConditionPointMass, ConditionTwoPoint, ConditionStep:
		return true
	}
	return false
}

// Ensemble size limits. N*(steps+1) is bounded so a single request cannot
// allocate an unbounded grid.
const (
	MaxPaths         = 100_000
	MaxEnsembleCells = 50_000_000
)

// DiffusionParams configures an arithmetic Brownian motion ensemble.
type DiffusionParams struct {
	S0               float64          `json:"s0"`                          // starting value
	Sigma            float64          `json:"sigma"`                       // absolute volatility, >= 0
	Mu               float64          `json:"mu"`                          // drift, used only when DriftEnabled
	T                float64          `json:"t"`                           // horizon
	Dt               float64          `json:"dt"`                          // time step
	N                int              `json:"n"`                           // number of paths
	DriftEnabled     bool             `json:"drift_enabled"`               // apply Mu
	InitialCondition InitialCondition `json:"initial_condition,omitempty"` // profile evaluation only
}

// DefaultDiffusionParams returns the Bachelier defaults: S0=100, sigma=20,
// T=1, dt=0.01, 200 paths, no drift.
func DefaultDiffusionParams() DiffusionParams {
	return DiffusionParams{
		S0:               100,
		Sigma:            20,
		Mu:               0,
		T:                1,
		Dt:               0.01,
		N:                200,
		InitialCondition: ConditionPointMass,
	}
}

// Steps returns floor(T/dt).
func (p DiffusionParams) Steps() int {
	if p.Dt <= 0 || math.IsNaN(p.T/p.Dt) {
		return 0
	}
	return int(math.Floor(p.T / p.Dt))
}

// EffectiveMu returns the drift applied per unit time.
func (p DiffusionParams) EffectiveMu() float64 {
	if !p.DriftEnabled {
		return 0
	}
	return p.Mu
}

// TheoreticalMean returns S0 + mu*T.
func (p DiffusionParams) TheoreticalMean() float64 {
	return p.S0 + p.EffectiveMu()*p.T
}

// TheoreticalVariance returns sigma^2 * T.
func (p DiffusionParams) TheoreticalVariance() float64 {
	return p.Sigma * p.Sigma * p.T
}

// Validate checks the parameters for path simulation.
func (p DiffusionParams) Validate() error {
	if !isFinite(p.S0) {
		return fmt.Errorf("%w: s0 must be finite", ErrInvalidParams)
	}
	if !isFinite(p.Sigma) || p.Sigma < 0 {
		return fmt.Errorf("%w: sigma must be >= 0, got %v", ErrInvalidParams, p.Sigma)
	}
	if p.DriftEnabled && !isFinite(p.Mu) {
		return fmt.Errorf("%w: mu must be finite", ErrInvalidParams)
	}
	if !isFinite(p.T) || p.T <= 0 {
		return fmt.Errorf("%w: T must be > 0, got %v", ErrInvalidParams, p.T)
	}
	if !isFinite(p.Dt) || p.Dt <= 0 {
		return fmt.Errorf("%w: dt must be > 0, got %v", ErrInvalidParams, p.Dt)
	}
	steps := p.Steps()
	if steps < 1 {
		return fmt.Errorf("%w: floor(T/dt) must be >= 1, got %d", ErrInvalidParams, steps)
	}
	if p.N < 1 || p.N > MaxPaths {
		return fmt.Errorf("%w: N must be in [1, %d], got %d", ErrInvalidParams, MaxPaths, p.N)
	}
	if int64(p.N)*int64(steps+1) > MaxEnsembleCells {
		return fmt.Errorf("%w: ensemble of %d paths x %d steps is too large", ErrInvalidParams, p.N, steps)
	}
	if p.InitialCondition != "" && !p.InitialCondition.Valid() {
		return fmt.Errorf("%w: unknown initial condition %q", ErrInvalidParams, p.InitialCondition)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
