package verification

import (
	"fmt"
	"math"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/portfolio"
	"diffusion-lab/internal/pricing"
)

// Invariant check names.
const (
	CheckGrid        = "grid"
	CheckPathStart   = "path_start"
	CheckSymmetry    = "covariance_symmetry"
	CheckDiagonal    = "covariance_diagonal"
	CheckPSD         = "covariance_psd"
	CheckSimplex     = "weights_simplex"
	CheckFrontierOrd = "frontier_order"
	CheckEndpoint    = "frontier_endpoint"
	CheckFBMShape    = "fbm_shape"
	CheckParity      = "put_call_parity"
)

// Tolerances for structural checks.
const (
	DiagonalTolerance = 1e-12
	SimplexTolerance  = 1e-9
	ParityTolerance   = 1e-6
	// PSDTolerance is relative to the largest diagonal entry.
	PSDTolerance = 1e-10
)

// Divergence is one failed invariant check.
type Divergence struct {
	Check  string `json:"check"`
	Detail string `json:"detail"`
}

// Checks returns the names of the failed checks, one per divergence.
func Checks(ds []Divergence) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Check
	}
	return out
}

// VerifyEnsemble checks that every path shares the time grid and starts at s0.
func VerifyEnsemble(ens *domain.PathEnsemble, s0 float64) []Divergence {
	var ds []Divergence
	for i, p := range ens.Paths {
		if len(p) != len(ens.Times) {
			ds = append(ds, Divergence{CheckGrid, fmt.Sprintf("path %d has %d values, grid has %d", i, len(p), len(ens.Times))})
			continue
		}
		if len(p) > 0 && p[0] != s0 {
			ds = append(ds, Divergence{CheckPathStart, fmt.Sprintf("path %d starts at %v, want %v", i, p[0], s0)})
		}
	}
	for k := 1; k < len(ens.Times); k++ {
		if ens.Times[k] <= ens.Times[k-1] {
			ds = append(ds, Divergence{CheckGrid, fmt.Sprintf("time grid not increasing at %d", k)})
			break
		}
	}
	return ds
}

// VerifyCovariance checks symmetry, the vol^2 diagonal and positive semi-definiteness.
func VerifyCovariance(cov domain.CovarianceMatrix, vols []float64) []Divergence {
	var ds []Divergence
	n := cov.Size()
	if n != len(vols) {
		return []Divergence{{CheckDiagonal, fmt.Sprintf("matrix is %dx%d for %d assets", n, n, len(vols))}}
	}

	maxDiag := 0.0
	for i := 0; i < n; i++ {
		want := vols[i] * vols[i]
		if math.Abs(cov[i][i]-want) > DiagonalTolerance {
			ds = append(ds, Divergence{CheckDiagonal, fmt.Sprintf("cov[%d][%d]=%v, want %v", i, i, cov[i][i], want)})
		}
		maxDiag = max(maxDiag, cov[i][i])
		for j := i + 1; j < n; j++ {
			if cov[i][j] != cov[j][i] {
				ds = append(ds, Divergence{CheckSymmetry, fmt.Sprintf("cov[%d][%d]=%v != cov[%d][%d]=%v", i, j, cov[i][j], j, i, cov[j][i])})
			}
		}
	}

	minEig, err := portfolio.MinEigenvalue(cov)
	if err != nil {
		ds = append(ds, Divergence{CheckPSD, err.Error()})
	} else if minEig < -PSDTolerance*maxDiag {
		ds = append(ds, Divergence{CheckPSD, fmt.Sprintf("min eigenvalue %v", minEig)})
	}
	return ds
}

// VerifyCloud checks that every sample's weights are non-negative and sum to one.
func VerifyCloud(cloud *domain.PortfolioCloud, numAssets int) []Divergence {
	var ds []Divergence
	for i, s := range cloud.Samples {
		if len(s.Weights) != numAssets {
			ds = append(ds, Divergence{CheckSimplex, fmt.Sprintf("sample %d has %d weights", i, len(s.Weights))})
			continue
		}
		sum := 0.0
		for _, w := range s.Weights {
			if w < 0 {
				ds = append(ds, Divergence{CheckSimplex, fmt.Sprintf("sample %d has negative weight %v", i, w)})
			}
			sum += w
		}
		if math.Abs(sum-1) > SimplexTolerance {
			ds = append(ds, Divergence{CheckSimplex, fmt.Sprintf("sample %d weights sum to %v", i, sum)})
		}
	}
	return ds
}

// VerifyFrontier checks return ordering and that the last point is the highest-return asset.
func VerifyFrontier(f *domain.Frontier, assets domain.AssetSet) []Divergence {
	var ds []Divergence
	for i := 1; i < len(f.Points); i++ {
		if f.Points[i].Return < f.Points[i-1].Return {
			ds = append(ds, Divergence{CheckFrontierOrd, fmt.Sprintf("point %d return %v < previous %v", i, f.Points[i].Return, f.Points[i-1].Return)})
		}
	}

	best := assets.MaxReturnIndex()
	if best < 0 || len(f.Points) == 0 {
		return append(ds, Divergence{CheckEndpoint, "empty frontier or asset set"})
	}
	last := f.Points[len(f.Points)-1]
	if last.Return != assets[best].ExpectedReturn || last.Volatility != assets[best].Volatility {
		ds = append(ds, Divergence{CheckEndpoint, fmt.Sprintf("last point (%v, %v) is not %s", last.Volatility, last.Return, assets[best].Name)})
	}
	return ds
}

// VerifyFBM checks the series length and origin.
func VerifyFBM(s *domain.FBMSeries) []Divergence {
	want := (1 << s.Levels) + 1
	if len(s.Values) != want {
		return []Divergence{{CheckFBMShape, fmt.Sprintf("series has %d values, want %d", len(s.Values), want)}}
	}
	if s.Values[0] != 0 {
		return []Divergence{{CheckFBMShape, fmt.Sprintf("series starts at %v", s.Values[0])}}
	}
	return nil
}

// VerifyParity checks C - P = S - K*exp(-rT) for a quote.
func VerifyParity(in domain.OptionInputs, q domain.OptionQuote) []Divergence {
	gap := pricing.ParityGap(in, q)
	if math.IsNaN(gap) || math.Abs(gap) > ParityTolerance {
		return []Divergence{{CheckParity, fmt.Sprintf("parity gap %v", gap)}}
	}
	return nil
}
