package pipeline

import (
	"context"
	"fmt"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/simulation"
)

// FixtureSeed seeds every fixture run.
const FixtureSeed uint64 = 42

// LoadFixtures runs one small operation of every kind through runner so its
// stores hold a complete demonstration data set. Runs are deterministic, so
// loading twice stores nothing new.
func LoadFixtures(ctx context.Context, runner *simulation.Runner) error {
	seed := FixtureSeed

	bachelier := simulation.DefaultBachelierRequest()
	bachelier.Seed = &seed
	if _, err := runner.RunBachelier(ctx, bachelier); err != nil {
		return fmt.Errorf("fixture %s: %w", domain.RunKindBachelier, err)
	}

	for _, cond := range []domain.InitialCondition{domain.ConditionPointMass, domain.ConditionTwoPoint, domain.ConditionStep} {
		req := simulation.DefaultDiffusionRequest()
		req.Seed = &seed
		req.Condition = cond
		if cond == domain.ConditionPointMass {
			req.OverlayPaths = simulation.DefaultOverlayPaths
		}
		if _, err := runner.RunDiffusion(ctx, req); err != nil {
			return fmt.Errorf("fixture %s/%s: %w", domain.RunKindDiffusion, cond, err)
		}
	}

	fbm := simulation.DefaultFractionalRequest()
	fbm.Seed = &seed
	if _, err := runner.RunFractional(ctx, fbm); err != nil {
		return fmt.Errorf("fixture %s: %w", domain.RunKindFractional, err)
	}

	regime := simulation.DefaultRegimeRequest()
	regime.Seed = &seed
	if _, err := runner.RunRegimeWalk(ctx, regime); err != nil {
		return fmt.Errorf("fixture %s: %w", domain.RunKindRegime, err)
	}

	for _, k := range []float64{90, 100, 110} {
		in := domain.DefaultOptionInputs()
		in.K = k
		if _, err := runner.PriceOption(ctx, in); err != nil {
			return fmt.Errorf("fixture %s k=%g: %w", domain.RunKindOption, k, err)
		}
	}

	portfolio := simulation.DefaultPortfolioRequest()
	portfolio.Seed = &seed
	portfolio.Samples = 1000
	if _, err := runner.RunPortfolio(ctx, portfolio); err != nil {
		return fmt.Errorf("fixture %s: %w", domain.RunKindPortfolio, err)
	}

	return nil
}
