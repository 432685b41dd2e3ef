// Package metrics computes summary statistics over engine outputs.
package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"diffusion-lab/internal/domain"
)

// TerminalSummary compares the terminal distribution of an ensemble with the
// Bachelier theory N(S0+mu*T, sigma^2*T). Variances are population variances.
type TerminalSummary struct {
	Paths             int     `json:"paths"`
	TheoryMean        float64 `json:"theory_mean"`
	TheoryVariance    float64 `json:"theory_variance"`
	EmpiricalMean     float64 `json:"empirical_mean"`
	EmpiricalVariance float64 `json:"empirical_variance"`
	MeanErrorPct      float64 `json:"mean_error_pct"`     // 0 when the theoretical value is 0
	VarianceErrorPct  float64 `json:"variance_error_pct"` // 0 when the theoretical value is 0
	Min               float64 `json:"min"`
	Max               float64 `json:"max"`
	P05               float64 `json:"p05"`
	P50               float64 `json:"p50"`
	P95               float64 `json:"p95"`
}

// SummarizeTerminal computes the terminal summary of an ensemble.
func SummarizeTerminal(ens *domain.PathEnsemble, params domain.DiffusionParams) TerminalSummary {
	terminals := ens.Terminals()
	sum := TerminalSummary{
		Paths:          len(terminals),
		TheoryMean:     params.TheoreticalMean(),
		TheoryVariance: params.TheoreticalVariance(),
	}
	if len(terminals) == 0 {
		return sum
	}

	sum.EmpiricalMean, sum.EmpiricalVariance = stat.PopMeanVariance(terminals, nil)
	sum.MeanErrorPct = pctError(sum.EmpiricalMean, sum.TheoryMean)
	sum.VarianceErrorPct = pctError(sum.EmpiricalVariance, sum.TheoryVariance)

	sorted := sortedCopy(terminals)
	sum.Min = sorted[0]
	sum.Max = sorted[len(sorted)-1]
	sum.P05 = percentile(sorted, 0.05)
	sum.P50 = percentile(sorted, 0.50)
	sum.P95 = percentile(sorted, 0.95)
	return sum
}

// pctError returns |got-want|/|want| in percent.
func pctError(got, want float64) float64 {
	if want == 0 {
		return 0
	}
	return math.Abs(got-want) / math.Abs(want) * 100
}

func sortedCopy(xs []float64) []float64 {
	out := make([]float64, len(xs))
	copy(out, xs)
	sort.Float64s(out)
	return out
}

// percentile uses linear interpolation between closest ranks.
// sorted must be pre-sorted ASC; p is a fraction (0.10 = 10th percentile).
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
