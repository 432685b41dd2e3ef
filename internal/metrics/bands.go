package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"diffusion-lab/internal/domain"
)

// Bands computes per-step cross-sectional statistics of an ensemble, keeping
// every stride-th step plus the final one.
func Bands(runID string, ens *domain.PathEnsemble, params domain.DiffusionParams, stride int) []domain.EnsembleBand {
	if stride < 1 {
		stride = 1
	}
	steps := len(ens.Times)
	if steps == 0 || len(ens.Paths) == 0 {
		return nil
	}

	mu := params.EffectiveMu()
	var out []domain.EnsembleBand
	for k := 0; k < steps; k++ {
		if k%stride != 0 && k != steps-1 {
			continue
		}
		col := ens.Column(k)
		mean, variance := stat.PopMeanVariance(col, nil)
		sorted := sortedCopy(col)
		t := ens.Times[k]

		out = append(out, domain.EnsembleBand{
			RunID:      runID,
			StepIndex:  k,
			Time:       t,
			Mean:       mean,
			StdDev:     math.Sqrt(variance),
			P05:        percentile(sorted, 0.05),
			P50:        percentile(sorted, 0.50),
			P95:        percentile(sorted, 0.95),
			TheoryMean: params.S0 + mu*t,
			TheoryStd:  params.Sigma * math.Sqrt(t),
		})
	}
	return out
}
