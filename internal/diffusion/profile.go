// Package diffusion evaluates closed-form solutions of the heat equation with
// drift for the initial conditions offered by the engine.
package diffusion

import (
	"fmt"
	"math"

	"diffusion-lab/internal/domain"
)

// MinTime floors the evaluation time so the kernel never degenerates at t=0.
const MinTime = 1e-6

// MaxIntervals bounds the profile grid.
const MaxIntervals = 100_000

// Evaluate returns the profile u(x, t) on the domain grid.
//
// Point mass gives N(S0+mu*t, sigma^2*t). Two-point gives the equal mixture
// centred at S0-offset and S0+offset. Step gives 0.5*(1+erf(z)) with
// z = (x-(S0+mu*t))/(sigma*sqrt(2t)).
func Evaluate(t, sigma, mu float64, cond domain.InitialCondition, dom domain.ProfileDomain) (*domain.HeatProfile, error) {
	if err := ValidateInputs(t, sigma, mu, cond, dom); err != nil {
		return nil, err
	}

	te := math.Max(t, MinTime)
	std := sigma * math.Sqrt(te)
	center := dom.S0 + mu*te
	dx := (dom.XMax - dom.XMin) / float64(dom.Intervals)

	points := make([]domain.ProfilePoint, dom.Intervals+1)
	for i := range points {
		x := dom.XMin + float64(i)*dx
		var u float64
		switch cond {
		case domain.ConditionPointMass:
			u = GaussianPDF(x, center, std)
		case domain.ConditionTwoPoint:
			u = 0.5*GaussianPDF(x, center-dom.Offset, std) + 0.5*GaussianPDF(x, center+dom.Offset, std)
		case domain.ConditionStep:
			z := (x - center) / (std * math.Sqrt2)
			u = 0.5 * (1 + Erf(z))
		}
		points[i] = domain.ProfilePoint{X: x, Density: u}
	}

	return &domain.HeatProfile{T: t, Condition: cond, Points: points}, nil
}

// ValidateInputs checks the arguments of Evaluate.
func ValidateInputs(t, sigma, mu float64, cond domain.InitialCondition, dom domain.ProfileDomain) error {
	if math.IsNaN(sigma) || math.IsInf(sigma, 0) || sigma <= 0 {
		return fmt.Errorf("%w: sigma must be > 0, got %v", domain.ErrInvalidParams, sigma)
	}
	if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		return fmt.Errorf("%w: t must be >= 0, got %v", domain.ErrInvalidParams, t)
	}
	if math.IsNaN(mu) || math.IsInf(mu, 0) {
		return fmt.Errorf("%w: mu must be finite", domain.ErrInvalidParams)
	}
	if !cond.Valid() {
		return fmt.Errorf("%w: unknown initial condition %q", domain.ErrInvalidParams, cond)
	}
	if !isFinite(dom.XMin) || !isFinite(dom.XMax) || !isFinite(dom.S0) || !isFinite(dom.Offset) {
		return fmt.Errorf("%w: domain bounds, s0 and offset must be finite", domain.ErrInvalidParams)
	}
	if dom.Intervals < 1 || dom.Intervals > MaxIntervals || !(dom.XMax > dom.XMin) {
		return fmt.Errorf("%w: domain must have xmax > xmin and 1 to %d intervals", domain.ErrInvalidParams, MaxIntervals)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
