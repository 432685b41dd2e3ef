package simulation

import (
	"context"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/pricing"
	"diffusion-lab/internal/verification"
)

// OptionSummary is the persisted summary of a pricing run.
type OptionSummary struct {
	domain.OptionQuote
	ParityGap float64 `json:"parity_gap"`
}

// OptionResult is the output of PriceOption.
type OptionResult struct {
	RunID       string                    `json:"run_id"`
	Inputs      domain.OptionInputs       `json:"inputs"`
	Summary     OptionSummary             `json:"summary"`
	Divergences []verification.Divergence `json:"divergences,omitempty"`
}

// PriceOption prices the European call and put. Pricing draws no randomness,
// so the run ID uses seed 0.
func (r *Runner) PriceOption(ctx context.Context, in domain.OptionInputs) (*OptionResult, error) {
	if err := in.Validate(); err != nil {
		return nil, r.fail(domain.RunKindOption, r.clock(), err)
	}

	rn, err := r.begin(domain.RunKindOption, seedPtr(0), in)
	if err != nil {
		return nil, r.fail(domain.RunKindOption, r.clock(), err)
	}

	res := execOption(in)
	res.RunID = rn.id

	if _, err := r.finish(ctx, rn, res.Summary, nil, nil, res.Divergences); err != nil {
		return nil, err
	}
	return res, nil
}

func execOption(in domain.OptionInputs) *OptionResult {
	q := pricing.Price(in)
	return &OptionResult{
		Inputs: in,
		Summary: OptionSummary{
			OptionQuote: q,
			ParityGap:   pricing.ParityGap(in, q),
		},
		Divergences: verification.VerifyParity(in, q),
	}
}
