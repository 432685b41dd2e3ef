package metrics

import (
	"math"
	"testing"

	"diffusion-lab/internal/domain"
)

func TestBands(t *testing.T) {
	params := domain.DefaultDiffusionParams()
	params.T = 0.04
	ens := &domain.PathEnsemble{
		Times: []float64{0, 0.01, 0.02, 0.03, 0.04},
		Paths: []domain.Path{
			{100, 101, 102, 103, 104},
			{100, 99, 98, 97, 96},
		},
	}

	bands := Bands("run-1", ens, params, 2)
	if len(bands) != 3 {
		t.Fatalf("expected steps 0, 2, 4; got %d bands", len(bands))
	}
	for i, k := range []int{0, 2, 4} {
		if bands[i].StepIndex != k || bands[i].RunID != "run-1" {
			t.Errorf("band %d = %+v", i, bands[i])
		}
		if bands[i].Mean != 100 {
			t.Errorf("band %d mean = %v", i, bands[i].Mean)
		}
	}
	if bands[0].StdDev != 0 || bands[0].TheoryStd != 0 {
		t.Errorf("t=0 band should have zero spread: %+v", bands[0])
	}
	if math.Abs(bands[2].StdDev-4) > 1e-12 {
		t.Errorf("final std = %v, want 4", bands[2].StdDev)
	}
	if math.Abs(bands[2].TheoryStd-20*0.2) > 1e-12 {
		t.Errorf("final theory std = %v, want 4", bands[2].TheoryStd)
	}
}

func TestBands_Empty(t *testing.T) {
	if b := Bands("x", &domain.PathEnsemble{}, domain.DefaultDiffusionParams(), 1); b != nil {
		t.Errorf("expected nil bands, got %v", b)
	}
}
