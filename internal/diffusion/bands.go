package diffusion

import (
	"context"
	"math"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/pathsim"
	"diffusion-lab/internal/rng"
)

// Band is the theoretical mean and one/two sigma envelope at a time point.
type Band struct {
	Time   float64 `json:"time"`
	Mean   float64 `json:"mean"`
	Lower1 float64 `json:"lower_1"`
	Upper1 float64 `json:"upper_1"`
	Lower2 float64 `json:"lower_2"`
	Upper2 float64 `json:"upper_2"`
	StdDev float64 `json:"std_dev"`
}

// TheoreticalBands returns S0+mu*t +/- k*sigma*sqrt(t) for k = 1, 2 on each time.
func TheoreticalBands(times []float64, params domain.DiffusionParams) []Band {
	mu := params.EffectiveMu()
	out := make([]Band, len(times))
	for i, t := range times {
		mean := params.S0 + mu*t
		std := params.Sigma * math.Sqrt(t)
		out[i] = Band{
			Time:   t,
			Mean:   mean,
			StdDev: std,
			Lower1: mean - std,
			Upper1: mean + std,
			Lower2: mean - 2*std,
			Upper2: mean + 2*std,
		}
	}
	return out
}

// OverlaySteps is the step count of the Monte-Carlo overlay.
const OverlaySteps = 50

// Overlay simulates n paths from s0 to time t in OverlaySteps steps for
// comparison against the analytic profile. The drift is always applied.
func Overlay(ctx context.Context, t, sigma, mu float64, n int, s0 float64, stream *rng.Stream) (*domain.PathEnsemble, error) {
	te := math.Max(t, MinTime)
	grid := pathsim.Grid{
		S0:    s0,
		Mu:    mu,
		Sigma: sigma,
		Dt:    te / OverlaySteps,
		Steps: OverlaySteps,
		N:     n,
	}
	return pathsim.SimulateGrid(ctx, grid, stream, pathsim.Options{})
}
