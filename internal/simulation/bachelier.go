package simulation

import (
	"context"

	"diffusion-lab/internal/diffusion"
	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/metrics"
	"diffusion-lab/internal/pathsim"
	"diffusion-lab/internal/rng"
	"diffusion-lab/internal/verification"
)

// BachelierSummary is the persisted summary of a Bachelier run.
type BachelierSummary struct {
	Steps    int                     `json:"steps"`
	Terminal metrics.TerminalSummary `json:"terminal"`
}

// BachelierResult is the output of RunBachelier.
type BachelierResult struct {
	RunID       string                    `json:"run_id"`
	Seed        uint64                    `json:"seed"`
	Ensemble    *domain.PathEnsemble      `json:"ensemble"`
	Summary     BachelierSummary          `json:"summary"`
	Histogram   metrics.Histogram         `json:"histogram"`
	Bands       []diffusion.Band          `json:"bands"` // theoretical one/two sigma envelope
	Divergences []verification.Divergence `json:"divergences,omitempty"`

	ensembleBands []domain.EnsembleBand
}

// RunBachelier simulates an arithmetic Brownian ensemble and compares it with theory.
func (r *Runner) RunBachelier(ctx context.Context, req BachelierRequest) (*BachelierResult, error) {
	p := req.BachelierParams
	if err := p.Validate(); err != nil {
		return nil, r.fail(domain.RunKindBachelier, r.clock(), err)
	}

	rn, err := r.begin(domain.RunKindBachelier, req.Seed, p)
	if err != nil {
		return nil, r.fail(domain.RunKindBachelier, r.clock(), err)
	}

	res, err := r.execBachelier(ctx, rn.id, p, rn.seed)
	if err != nil {
		return nil, r.fail(rn.kind, rn.started, err)
	}

	if _, err := r.finish(ctx, rn, res.Summary, res.ensembleBands, nil, res.Divergences); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Runner) execBachelier(ctx context.Context, runID string, p BachelierParams, seed uint64) (*BachelierResult, error) {
	ens, err := pathsim.SimulateArithmetic(ctx, p.DiffusionParams, rng.New(seed), pathsim.Options{Workers: r.workers})
	if err != nil {
		return nil, err
	}
	r.metrics.PathsSimulated.Add(float64(len(ens.Paths)))

	terminal := metrics.SummarizeTerminal(ens, p.DiffusionParams)
	return &BachelierResult{
		RunID:    runID,
		Seed:     seed,
		Ensemble: ens,
		Summary: BachelierSummary{
			Steps:    p.Steps(),
			Terminal: terminal,
		},
		Histogram:     metrics.TerminalHistogram(ens.Terminals(), p.HistogramBins, terminal.TheoryMean, terminal.TheoryVariance),
		Bands:         diffusion.TheoreticalBands(ens.Times, p.DiffusionParams),
		Divergences:   verification.VerifyEnsemble(ens, p.S0),
		ensembleBands: metrics.Bands(runID, ens, p.DiffusionParams, r.bandStride),
	}, nil
}
