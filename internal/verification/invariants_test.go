package verification

import (
	"context"
	"testing"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/pathsim"
	"diffusion-lab/internal/portfolio"
	"diffusion-lab/internal/pricing"
	"diffusion-lab/internal/rng"
)

func TestVerifyEnsemble(t *testing.T) {
	params := domain.DefaultDiffusionParams()
	params.N = 20
	ens, err := pathsim.SimulateArithmetic(context.Background(), params, rng.New(1), pathsim.Options{})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if ds := VerifyEnsemble(ens, params.S0); len(ds) != 0 {
		t.Fatalf("unexpected divergences: %+v", ds)
	}

	ens.Paths[3][0] = 99
	ens.Paths[5] = ens.Paths[5][:10]
	ds := VerifyEnsemble(ens, params.S0)
	if len(ds) != 2 {
		t.Fatalf("expected 2 divergences, got %+v", ds)
	}
	if ds[0].Check != CheckPathStart || ds[1].Check != CheckGrid {
		t.Errorf("unexpected checks: %v", Checks(ds))
	}
}

func TestVerifyCovariance(t *testing.T) {
	vols := []float64{0.1, 0.2, 0.15}
	cov, err := portfolio.SynthesizeCovariance(vols, rng.New(3))
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if ds := VerifyCovariance(cov, vols); len(ds) != 0 {
		t.Fatalf("unexpected divergences: %+v", ds)
	}

	// Correlation of 2 between assets 0 and 1 is not PSD
	bad := domain.CovarianceMatrix{
		{0.01, 0.04, 0},
		{0.04, 0.04, 0},
		{0, 0, 0.0225},
	}
	ds := VerifyCovariance(bad, vols)
	found := false
	for _, d := range ds {
		if d.Check == CheckPSD {
			found = true
		}
	}
	if !found {
		t.Errorf("expected PSD divergence, got %+v", ds)
	}

	bad[0][1] = 0.001
	ds = VerifyCovariance(bad, vols)
	if len(ds) == 0 || ds[0].Check != CheckSymmetry {
		t.Errorf("expected symmetry divergence, got %+v", ds)
	}
}

func TestVerifyCloudAndFrontier(t *testing.T) {
	cfg := portfolio.DefaultConfig()
	stream := rng.New(11)
	assets, err := portfolio.GenerateAssets(cfg, stream.Derive(0))
	if err != nil {
		t.Fatalf("assets: %v", err)
	}
	cov, err := portfolio.SynthesizeCovariance(assets.Volatilities(), stream.Derive(1))
	if err != nil {
		t.Fatalf("covariance: %v", err)
	}
	cloud, err := portfolio.Sample(context.Background(), assets, cov, cfg.RiskFreeRate, 1000, stream.Derive(2), portfolio.Options{})
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if ds := VerifyCloud(cloud, len(assets)); len(ds) != 0 {
		t.Fatalf("unexpected cloud divergences: %+v", ds[:min(3, len(ds))])
	}

	frontier, err := portfolio.ExtractFrontier(cloud, assets, cfg.RiskFreeRate, cfg.Bins)
	if err != nil {
		t.Fatalf("frontier: %v", err)
	}
	if ds := VerifyFrontier(frontier, assets); len(ds) != 0 {
		t.Fatalf("unexpected frontier divergences: %+v", ds)
	}

	cloud.Samples[0].Weights[0] += 0.5
	if ds := VerifyCloud(cloud, len(assets)); len(ds) != 1 || ds[0].Check != CheckSimplex {
		t.Errorf("expected one simplex divergence, got %+v", ds)
	}

	frontier.Points = frontier.Points[:len(frontier.Points)-1]
	if ds := VerifyFrontier(frontier, assets); len(ds) == 0 {
		t.Error("expected endpoint divergence after dropping last point")
	}
}

func TestVerifyFBMAndParity(t *testing.T) {
	s, err := pathsim.SimulateFractional(6, 0.7, rng.New(5))
	if err != nil {
		t.Fatalf("fbm: %v", err)
	}
	if ds := VerifyFBM(s); len(ds) != 0 {
		t.Errorf("unexpected fbm divergences: %+v", ds)
	}
	s.Values = s.Values[1:]
	if ds := VerifyFBM(s); len(ds) != 1 {
		t.Errorf("expected shape divergence")
	}

	in := domain.DefaultOptionInputs()
	q := pricing.Price(in)
	if ds := VerifyParity(in, q); len(ds) != 0 {
		t.Errorf("unexpected parity divergence: %+v", ds)
	}
	q.Call += 0.01
	if ds := VerifyParity(in, q); len(ds) != 1 {
		t.Errorf("expected parity divergence")
	}
}
