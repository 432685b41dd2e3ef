package portfolio

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/rng"
)

// SynthesizeCovariance builds a random covariance matrix with the given
// volatilities on its diagonal.
//
// An n x n matrix A of standard normals gives the Gram matrix G = A*A^T, which
// is normalised to a correlation matrix C_ij = G_ij / sqrt(G_ii*G_jj) and
// scaled to Sigma_ij = C_ij*vol_i*vol_j. The result is symmetric, has
// vol_i^2 on the diagonal and is positive semi-definite.
func SynthesizeCovariance(vols []float64, src rng.Source) (domain.CovarianceMatrix, error) {
	n := len(vols)
	if n < domain.MinAssets || n > domain.MaxAssets {
		return nil, fmt.Errorf("%w: asset count must be in [%d, %d], got %d", domain.ErrInvalidParams, domain.MinAssets, domain.MaxAssets, n)
	}
	for i, v := range vols {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return nil, fmt.Errorf("%w: volatility %d must be > 0, got %v", domain.ErrInvalidParams, i, v)
		}
	}

	a := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a.Set(i, j, src.Normal(0, 1))
		}
	}

	gram := mat.NewSymDense(n, nil)
	gram.SymOuterK(1, a)

	cov := make(domain.CovarianceMatrix, n)
	for i := range cov {
		cov[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		cov[i][i] = vols[i] * vols[i]
		for j := i + 1; j < n; j++ {
			corr := gram.At(i, j) / math.Sqrt(gram.At(i, i)*gram.At(j, j))
			v := corr * vols[i] * vols[j]
			cov[i][j] = v
			cov[j][i] = v
		}
	}
	return cov, nil
}

// MinEigenvalue returns the smallest eigenvalue of a symmetric matrix.
func MinEigenvalue(cov domain.CovarianceMatrix) (float64, error) {
	n := cov.Size()
	if n == 0 {
		return 0, fmt.Errorf("%w: empty matrix", domain.ErrInvalidParams)
	}
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		if len(cov[i]) != n {
			return 0, fmt.Errorf("%w: row %d has %d columns, want %d", domain.ErrInvalidParams, i, len(cov[i]), n)
		}
		for j := i; j < n; j++ {
			sym.SetSym(i, j, cov[i][j])
		}
	}

	var es mat.EigenSym
	if ok := es.Factorize(sym, false); !ok {
		return 0, errors.New("eigen decomposition failed")
	}
	vals := es.Values(nil)
	lowest := vals[0]
	for _, v := range vals[1:] {
		lowest = math.Min(lowest, v)
	}
	return lowest, nil
}
