package portfolio

import (
	"errors"
	"math"
	"testing"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/rng"
)

func TestSynthesizeCovariance_Invariants(t *testing.T) {
	src := rng.New(2024)

	for n := domain.MinAssets; n <= domain.MaxAssets; n++ {
		for trial := 0; trial < 100; trial++ {
			vols := make([]float64, n)
			for i := range vols {
				vols[i] = 0.1 + 0.15*src.Uniform()
			}

			cov, err := SynthesizeCovariance(vols, src)
			if err != nil {
				t.Fatalf("n=%d: %v", n, err)
			}

			for i := 0; i < n; i++ {
				if cov[i][i] != vols[i]*vols[i] {
					t.Fatalf("n=%d: diagonal %d = %v, want %v", n, i, cov[i][i], vols[i]*vols[i])
				}
				for j := 0; j < n; j++ {
					if cov[i][j] != cov[j][i] {
						t.Fatalf("n=%d: not symmetric at (%d,%d)", n, i, j)
					}
					if math.Abs(cov[i][j]) > vols[i]*vols[j]*(1+1e-12) {
						t.Fatalf("n=%d: |corr| > 1 at (%d,%d)", n, i, j)
					}
				}
			}

			lowest, err := MinEigenvalue(cov)
			if err != nil {
				t.Fatalf("MinEigenvalue: %v", err)
			}
			if lowest < -1e-12 {
				t.Fatalf("n=%d: negative eigenvalue %v", n, lowest)
			}
		}
	}
}

func TestSynthesizeCovariance_Invalid(t *testing.T) {
	if _, err := SynthesizeCovariance([]float64{0.1, 0.2}, rng.New(1)); !errors.Is(err, domain.ErrInvalidParams) {
		t.Errorf("two assets: expected ErrInvalidParams, got %v", err)
	}
	if _, err := SynthesizeCovariance([]float64{0.1, 0, 0.2}, rng.New(1)); !errors.Is(err, domain.ErrInvalidParams) {
		t.Errorf("zero vol: expected ErrInvalidParams, got %v", err)
	}
}

func TestMinEigenvalue_Known(t *testing.T) {
	cov := domain.CovarianceMatrix{
		{2, 1},
		{1, 2},
	}
	got, err := MinEigenvalue(cov)
	if err != nil {
		t.Fatalf("MinEigenvalue: %v", err)
	}
	if math.Abs(got-1) > 1e-12 {
		t.Errorf("min eigenvalue = %v, want 1", got)
	}
}
