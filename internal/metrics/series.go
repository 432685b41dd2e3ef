package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Lag1Autocorrelation returns the Pearson correlation of xs[:-1] with xs[1:].
// Series shorter than three values return 0.
func Lag1Autocorrelation(xs []float64) float64 {
	if len(xs) < 3 {
		return 0
	}
	c := stat.Correlation(xs[:len(xs)-1], xs[1:], nil)
	if math.IsNaN(c) {
		return 0
	}
	return c
}

// IncrementVariance returns the mean squared value of a zero-mean increment series.
func IncrementVariance(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	var ss float64
	for _, r := range returns {
		ss += r * r
	}
	return ss / float64(len(returns))
}

// SeriesSummary describes a single series and its increments.
type SeriesSummary struct {
	Points          int     `json:"points"`
	First           float64 `json:"first"`
	Last            float64 `json:"last"`
	Min             float64 `json:"min"`
	Max             float64 `json:"max"`
	ReturnMean      float64 `json:"return_mean"`
	ReturnStdDev    float64 `json:"return_std_dev"`
	Lag1Autocorr    float64 `json:"lag1_autocorr"`
	AbsLag1Autocorr float64 `json:"abs_lag1_autocorr"` // volatility clustering signal
}

// SummarizeSeries computes the summary of values and their first differences.
func SummarizeSeries(values []float64) SeriesSummary {
	s := SeriesSummary{Points: len(values)}
	if len(values) == 0 {
		return s
	}
	s.First = values[0]
	s.Last = values[len(values)-1]
	s.Min, s.Max = values[0], values[0]
	for _, v := range values {
		s.Min = min(s.Min, v)
		s.Max = max(s.Max, v)
	}
	if len(values) < 2 {
		return s
	}

	returns := make([]float64, len(values)-1)
	abs := make([]float64, len(returns))
	for i := 1; i < len(values); i++ {
		returns[i-1] = values[i] - values[i-1]
		if returns[i-1] < 0 {
			abs[i-1] = -returns[i-1]
		} else {
			abs[i-1] = returns[i-1]
		}
	}
	s.ReturnMean, s.ReturnStdDev = stat.PopMeanStdDev(returns, nil)
	s.Lag1Autocorr = Lag1Autocorrelation(returns)
	s.AbsLag1Autocorr = Lag1Autocorrelation(abs)
	return s
}
