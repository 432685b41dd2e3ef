package simulation

import (
	"context"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/portfolio"
	"diffusion-lab/internal/rng"
	"diffusion-lab/internal/verification"
)

// PortfolioSummary is the persisted summary of a portfolio run.
type PortfolioSummary struct {
	Assets          int                     `json:"assets"`
	Samples         int                     `json:"samples"`
	NonFiniteSharpe int                     `json:"non_finite_sharpe"`
	MaxSharpe       *domain.PortfolioSample `json:"max_sharpe,omitempty"`
	MinVolatility   *domain.PortfolioSample `json:"min_volatility,omitempty"`
	FrontierPoints  int                     `json:"frontier_points"`
	CMLSlope        *float64                `json:"cml_slope,omitempty"`
	MinEigenvalue   float64                 `json:"min_eigenvalue"`
}

// PortfolioResult is the output of RunPortfolio.
type PortfolioResult struct {
	RunID       string                    `json:"run_id"`
	Seed        uint64                    `json:"seed"`
	Assets      domain.AssetSet           `json:"assets"`
	Covariance  domain.CovarianceMatrix   `json:"covariance"`
	Cloud       *domain.PortfolioCloud    `json:"cloud"`
	Frontier    *domain.Frontier          `json:"frontier"`
	Summary     PortfolioSummary          `json:"summary"`
	Divergences []verification.Divergence `json:"divergences,omitempty"`

	rows []domain.FrontierRow
}

// RunPortfolio synthesises a market, samples portfolios and extracts the frontier.
func (r *Runner) RunPortfolio(ctx context.Context, req PortfolioRequest) (*PortfolioResult, error) {
	p := req.PortfolioParams
	if err := p.Validate(); err != nil {
		return nil, r.fail(domain.RunKindPortfolio, r.clock(), err)
	}

	rn, err := r.begin(domain.RunKindPortfolio, req.Seed, p)
	if err != nil {
		return nil, r.fail(domain.RunKindPortfolio, r.clock(), err)
	}

	res, err := r.execPortfolio(ctx, rn.id, p, rn.seed)
	if err != nil {
		return nil, r.fail(rn.kind, rn.started, err)
	}

	if _, err := r.finish(ctx, rn, res.Summary, nil, res.rows, res.Divergences); err != nil {
		return nil, err
	}
	return res, nil
}

// execPortfolio draws assets, covariance and samples from derived streams 0, 1 and 2.
func (r *Runner) execPortfolio(ctx context.Context, runID string, p PortfolioParams, seed uint64) (*PortfolioResult, error) {
	root := rng.New(seed)

	assets, err := portfolio.GenerateAssets(p.Config, root.Derive(0))
	if err != nil {
		return nil, err
	}
	cov, err := portfolio.SynthesizeCovariance(assets.Volatilities(), root.Derive(1))
	if err != nil {
		return nil, err
	}
	cloud, err := portfolio.Sample(ctx, assets, cov, p.RiskFreeRate, p.Samples, root.Derive(2), portfolio.Options{Workers: r.workers})
	if err != nil {
		return nil, err
	}
	r.metrics.PortfoliosSampled.Add(float64(len(cloud.Samples)))
	r.metrics.NonFiniteSharpe.Add(float64(cloud.NonFiniteSharpe))

	frontier, err := portfolio.ExtractFrontier(cloud, assets, p.RiskFreeRate, p.Bins)
	if err != nil {
		return nil, err
	}
	minEig, err := portfolio.MinEigenvalue(cov)
	if err != nil {
		return nil, err
	}

	var divergences []verification.Divergence
	divergences = append(divergences, verification.VerifyCovariance(cov, assets.Volatilities())...)
	divergences = append(divergences, verification.VerifyCloud(cloud, len(assets))...)
	divergences = append(divergences, verification.VerifyFrontier(frontier, assets)...)

	summary := PortfolioSummary{
		Assets:          len(assets),
		Samples:         len(cloud.Samples),
		NonFiniteSharpe: cloud.NonFiniteSharpe,
		MaxSharpe:       cloud.MaxSharpe,
		MinVolatility:   cloud.MinVolatility,
		FrontierPoints:  len(frontier.Points),
		MinEigenvalue:   minEig,
	}
	if frontier.CML != nil {
		slope := frontier.CML.Slope
		summary.CMLSlope = &slope
	}

	return &PortfolioResult{
		RunID:       runID,
		Seed:        seed,
		Assets:      assets,
		Covariance:  cov,
		Cloud:       cloud,
		Frontier:    frontier,
		Summary:     summary,
		Divergences: divergences,
		rows:        frontierRows(runID, frontier),
	}, nil
}

func frontierRows(runID string, f *domain.Frontier) []domain.FrontierRow {
	rows := make([]domain.FrontierRow, 0, len(f.Points)+3)
	for i, pt := range f.Points {
		rows = append(rows, domain.FrontierRow{
			RunID:      runID,
			Series:     domain.SeriesFrontier,
			PointIndex: i,
			Volatility: pt.Volatility,
			Return:     pt.Return,
		})
	}
	if f.CML != nil {
		for i, pt := range f.CML.Points {
			rows = append(rows, domain.FrontierRow{
				RunID:      runID,
				Series:     domain.SeriesCML,
				PointIndex: i,
				Volatility: pt.Volatility,
				Return:     pt.Return,
			})
		}
	}
	return rows
}
