package simulation

import (
	"context"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/metrics"
	"diffusion-lab/internal/pathsim"
	"diffusion-lab/internal/rng"
	"diffusion-lab/internal/verification"
)

// FractionalSummary is the persisted summary of a fractional Brownian run.
type FractionalSummary struct {
	Model             metrics.SeriesSummary  `json:"model"`
	Proxy             *metrics.SeriesSummary `json:"proxy,omitempty"`
	IncrementVariance float64                `json:"increment_variance"`
}

// FractionalResult is the output of RunFractional.
type FractionalResult struct {
	RunID       string                    `json:"run_id"`
	Seed        uint64                    `json:"seed"`
	Series      *domain.FBMSeries         `json:"series"`
	Proxy       *domain.FBMSeries         `json:"proxy,omitempty"` // H=0.55 market reference
	Summary     FractionalSummary         `json:"summary"`
	Divergences []verification.Divergence `json:"divergences,omitempty"`
}

// RunFractional generates a fractional Brownian series and, optionally, the
// market proxy series from an independent stream.
func (r *Runner) RunFractional(ctx context.Context, req FractionalRequest) (*FractionalResult, error) {
	p := req.FractionalParams
	if err := p.Validate(); err != nil {
		return nil, r.fail(domain.RunKindFractional, r.clock(), err)
	}

	rn, err := r.begin(domain.RunKindFractional, req.Seed, p)
	if err != nil {
		return nil, r.fail(domain.RunKindFractional, r.clock(), err)
	}

	res, err := r.execFractional(p, rn.seed)
	if err != nil {
		return nil, r.fail(rn.kind, rn.started, err)
	}
	res.RunID = rn.id

	if _, err := r.finish(ctx, rn, res.Summary, nil, nil, res.Divergences); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Runner) execFractional(p FractionalParams, seed uint64) (*FractionalResult, error) {
	root := rng.New(seed)
	series, err := pathsim.SimulateFractional(p.Levels, p.Hurst, root.Derive(0))
	if err != nil {
		return nil, err
	}

	res := &FractionalResult{
		Seed:   seed,
		Series: series,
		Summary: FractionalSummary{
			Model:             metrics.SummarizeSeries(series.Values),
			IncrementVariance: metrics.IncrementVariance(series.Returns()),
		},
		Divergences: verification.VerifyFBM(series),
	}

	if p.MarketProxy {
		proxy, err := pathsim.SimulateFractional(p.Levels, pathsim.MarketProxyHurst, root.Derive(1))
		if err != nil {
			return nil, err
		}
		summary := metrics.SummarizeSeries(proxy.Values)
		res.Proxy = proxy
		res.Summary.Proxy = &summary
	}
	return res, nil
}

// RegimeSummary is the persisted summary of a regime-switching walk.
type RegimeSummary struct {
	Series         metrics.SeriesSummary `json:"series"`
	Regimes        int                   `json:"regimes"`
	TurbulentShare float64               `json:"turbulent_share"` // fraction of steps in turbulent regimes
}

// RegimeResult is the output of RunRegimeWalk.
type RegimeResult struct {
	RunID   string             `json:"run_id"`
	Seed    uint64             `json:"seed"`
	Walk    *domain.RegimeWalk `json:"walk"`
	Summary RegimeSummary      `json:"summary"`
}

// RunRegimeWalk generates a volatility-clustering walk.
func (r *Runner) RunRegimeWalk(ctx context.Context, req RegimeRequest) (*RegimeResult, error) {
	p := req.RegimeParams
	if err := p.Validate(); err != nil {
		return nil, r.fail(domain.RunKindRegime, r.clock(), err)
	}

	rn, err := r.begin(domain.RunKindRegime, req.Seed, p)
	if err != nil {
		return nil, r.fail(domain.RunKindRegime, r.clock(), err)
	}

	res, err := r.execRegime(p, rn.seed)
	if err != nil {
		return nil, r.fail(rn.kind, rn.started, err)
	}
	res.RunID = rn.id

	if _, err := r.finish(ctx, rn, res.Summary, nil, nil, nil); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Runner) execRegime(p RegimeParams, seed uint64) (*RegimeResult, error) {
	walk, err := pathsim.SimulateRegimeWalk(p.RegimeOptions, rng.New(seed))
	if err != nil {
		return nil, err
	}

	turbulent := 0
	for _, reg := range walk.Regimes {
		if reg.Turbulent {
			turbulent += reg.Length
		}
	}
	return &RegimeResult{
		Seed: seed,
		Walk: walk,
		Summary: RegimeSummary{
			Series:         metrics.SummarizeSeries(walk.Prices),
			Regimes:        len(walk.Regimes),
			TurbulentShare: float64(turbulent) / float64(len(walk.Prices)-1),
		},
	}, nil
}
