package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"diffusion-lab/internal/diffusion"
)

// Histogram defaults.
const (
	DefaultHistogramBins = 50
	histogramPadding     = 0.2
	degeneratePadding    = 10
)

// Histogram is a binned distribution with the theoretical expected counts.
type Histogram struct {
	Edges    []float64 `json:"edges"` // len(Counts)+1 bin edges
	Counts   []float64 `json:"counts"`
	Expected []float64 `json:"expected"` // N * binWidth * pdf(bin centre)
}

// TerminalHistogram bins values over [min-pad, max+pad] where pad is 20% of
// the range (10 when every value is equal) and overlays the normal density
// with the given mean and variance, scaled to counts.
func TerminalHistogram(values []float64, bins int, theoryMean, theoryVariance float64) Histogram {
	if bins < 1 {
		bins = DefaultHistogramBins
	}
	if len(values) == 0 {
		return Histogram{}
	}

	sorted := sortedCopy(values)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	pad := (hi - lo) * histogramPadding
	if pad == 0 {
		pad = degeneratePadding
	}

	edges := make([]float64, bins+1)
	floats.Span(edges, lo-pad, hi+pad)
	counts := stat.Histogram(nil, edges, sorted, nil)

	width := edges[1] - edges[0]
	std := math.Sqrt(theoryVariance)
	expected := make([]float64, bins)
	for i := range expected {
		centre := 0.5 * (edges[i] + edges[i+1])
		expected[i] = float64(len(values)) * width * diffusion.GaussianPDF(centre, theoryMean, std)
	}

	return Histogram{Edges: edges, Counts: counts, Expected: expected}
}
