package simulation

import (
	"context"
	"math"

	"diffusion-lab/internal/diffusion"
	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/metrics"
	"diffusion-lab/internal/rng"
	"diffusion-lab/internal/verification"
)

// DiffusionSummary is the persisted summary of a heat-profile run.
type DiffusionSummary struct {
	Points      int                      `json:"points"`
	PeakX       float64                  `json:"peak_x"`
	PeakDensity float64                  `json:"peak_density"`
	Mass        float64                  `json:"mass"` // trapezoid integral over the domain
	Overlay     *metrics.TerminalSummary `json:"overlay,omitempty"`
}

// DiffusionResult is the output of RunDiffusion.
type DiffusionResult struct {
	RunID   string               `json:"run_id"`
	Seed    uint64               `json:"seed"`
	Profile *domain.HeatProfile  `json:"profile"`
	Overlay *domain.PathEnsemble `json:"overlay,omitempty"`
	Summary DiffusionSummary     `json:"summary"`
}

// RunDiffusion evaluates the analytic profile and, when requested, a
// Monte-Carlo overlay ensemble to the same time.
func (r *Runner) RunDiffusion(ctx context.Context, req DiffusionRequest) (*DiffusionResult, error) {
	p := req.DiffusionParams
	if err := p.Validate(); err != nil {
		return nil, r.fail(domain.RunKindDiffusion, r.clock(), err)
	}

	rn, err := r.begin(domain.RunKindDiffusion, req.Seed, p)
	if err != nil {
		return nil, r.fail(domain.RunKindDiffusion, r.clock(), err)
	}

	res, err := r.execDiffusion(ctx, p, rn.seed)
	if err != nil {
		return nil, r.fail(rn.kind, rn.started, err)
	}
	res.RunID = rn.id

	var divergences []verification.Divergence
	if res.Overlay != nil {
		divergences = verification.VerifyEnsemble(res.Overlay, p.Domain.S0)
	}
	if _, err := r.finish(ctx, rn, res.Summary, nil, nil, divergences); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Runner) execDiffusion(ctx context.Context, p DiffusionParams, seed uint64) (*DiffusionResult, error) {
	profile, err := diffusion.Evaluate(p.T, p.Sigma, p.Mu, p.Condition, p.Domain)
	if err != nil {
		return nil, err
	}

	res := &DiffusionResult{
		Seed:    seed,
		Profile: profile,
		Summary: summarizeProfile(profile),
	}

	if p.OverlayPaths > 0 {
		ens, err := diffusion.Overlay(ctx, p.T, p.Sigma, p.Mu, p.OverlayPaths, p.Domain.S0, rng.New(seed))
		if err != nil {
			return nil, err
		}
		r.metrics.PathsSimulated.Add(float64(len(ens.Paths)))

		theory := domain.DiffusionParams{
			S0:           p.Domain.S0,
			Sigma:        p.Sigma,
			Mu:           p.Mu,
			T:            math.Max(p.T, diffusion.MinTime),
			DriftEnabled: true,
		}
		overlay := metrics.SummarizeTerminal(ens, theory)
		res.Overlay = ens
		res.Summary.Overlay = &overlay
	}
	return res, nil
}

func summarizeProfile(profile *domain.HeatProfile) DiffusionSummary {
	s := DiffusionSummary{Points: len(profile.Points)}
	for i, pt := range profile.Points {
		if i == 0 || pt.Density > s.PeakDensity {
			s.PeakX = pt.X
			s.PeakDensity = pt.Density
		}
		if i > 0 {
			prev := profile.Points[i-1]
			s.Mass += 0.5 * (pt.Density + prev.Density) * (pt.X - prev.X)
		}
	}
	return s
}
