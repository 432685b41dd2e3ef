package portfolio

import (
	"context"
	"errors"
	"math"
	"testing"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/rng"
)

func market(t *testing.T, seed uint64) (domain.AssetSet, domain.CovarianceMatrix) {
	t.Helper()
	src := rng.New(seed)
	assets, err := GenerateAssets(DefaultConfig(), src)
	if err != nil {
		t.Fatalf("GenerateAssets: %v", err)
	}
	cov, err := SynthesizeCovariance(assets.Volatilities(), src)
	if err != nil {
		t.Fatalf("SynthesizeCovariance: %v", err)
	}
	return assets, cov
}

func TestSample_Cloud(t *testing.T) {
	assets, cov := market(t, 1)
	returns := assets.Returns()
	lo, hi := returns[0], returns[0]
	for _, r := range returns {
		lo = math.Min(lo, r)
		hi = math.Max(hi, r)
	}

	cloud, err := Sample(context.Background(), assets, cov, 0.02, 5000, rng.New(9), Options{})
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if len(cloud.Samples) != 5000 {
		t.Fatalf("expected 5000 samples, got %d", len(cloud.Samples))
	}

	maxSharpe := math.Inf(-1)
	minVol := math.Inf(1)
	for i, s := range cloud.Samples {
		var sum float64
		for _, w := range s.Weights {
			if w <= 0 {
				t.Fatalf("sample %d has non-positive weight %v", i, w)
			}
			sum += w
		}
		if math.Abs(sum-1) > 1e-12 {
			t.Fatalf("sample %d weights sum to %v", i, sum)
		}
		if s.Return < lo-1e-12 || s.Return > hi+1e-12 {
			t.Fatalf("sample %d return %v outside asset range", i, s.Return)
		}
		if math.Abs(s.Sharpe-(s.Return-0.02)/s.Volatility) > 1e-12 {
			t.Fatalf("sample %d sharpe inconsistent", i)
		}
		maxSharpe = math.Max(maxSharpe, s.Sharpe)
		minVol = math.Min(minVol, s.Volatility)
	}

	if cloud.MaxSharpe == nil || cloud.MaxSharpe.Sharpe != maxSharpe {
		t.Errorf("max sharpe not tracked: %+v vs %v", cloud.MaxSharpe, maxSharpe)
	}
	if cloud.MinVolatility == nil || cloud.MinVolatility.Volatility != minVol {
		t.Errorf("min volatility not tracked: %+v vs %v", cloud.MinVolatility, minVol)
	}
	if cloud.NonFiniteSharpe != 0 {
		t.Errorf("unexpected non-finite sharpe count %d", cloud.NonFiniteSharpe)
	}
}

func TestSample_WorkerIndependent(t *testing.T) {
	assets, cov := market(t, 2)

	a, err := Sample(context.Background(), assets, cov, 0.02, 3000, rng.New(4), Options{Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Sample(context.Background(), assets, cov, 0.02, 3000, rng.New(4), Options{Workers: 6})
	if err != nil {
		t.Fatal(err)
	}

	for i := range a.Samples {
		if a.Samples[i].Return != b.Samples[i].Return || a.Samples[i].Volatility != b.Samples[i].Volatility {
			t.Fatalf("sample %d differs between worker counts", i)
		}
	}
	if a.MaxSharpe.Sharpe != b.MaxSharpe.Sharpe || a.MinVolatility.Volatility != b.MinVolatility.Volatility {
		t.Error("tracked optima differ between worker counts")
	}
}

func TestSample_NonFiniteSharpeExcluded(t *testing.T) {
	assets := domain.AssetSet{
		{Name: "Asset A", ExpectedReturn: 0.05, Volatility: 0.1},
		{Name: "Asset B", ExpectedReturn: 0.07, Volatility: 0.1},
		{Name: "Asset C", ExpectedReturn: 0.09, Volatility: 0.1},
	}
	zero := domain.CovarianceMatrix{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}}

	cloud, err := Sample(context.Background(), assets, zero, 0.02, 100, rng.New(1), Options{})
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if cloud.MaxSharpe != nil {
		t.Errorf("expected no max-sharpe portfolio, got %+v", cloud.MaxSharpe)
	}
	if cloud.NonFiniteSharpe != 100 {
		t.Errorf("non-finite count = %d, want 100", cloud.NonFiniteSharpe)
	}

	if _, err := CapitalMarketLine(cloud, 0.02); !errors.Is(err, ErrNoFiniteSharpe) {
		t.Errorf("expected ErrNoFiniteSharpe, got %v", err)
	}
	frontier, err := ExtractFrontier(cloud, assets, 0.02, 100)
	if err != nil {
		t.Fatalf("ExtractFrontier: %v", err)
	}
	if frontier.CML != nil {
		t.Error("expected frontier without CML")
	}
}

func TestSample_Invalid(t *testing.T) {
	assets, cov := market(t, 3)

	if _, err := Sample(context.Background(), assets, cov[:3], 0.02, 10, rng.New(1), Options{}); !errors.Is(err, domain.ErrInvalidParams) {
		t.Errorf("mismatched covariance: expected ErrInvalidParams, got %v", err)
	}
	if _, err := Sample(context.Background(), assets, cov, 0.02, 0, rng.New(1), Options{}); !errors.Is(err, domain.ErrInvalidParams) {
		t.Errorf("zero count: expected ErrInvalidParams, got %v", err)
	}
}

func TestSample_Canceled(t *testing.T) {
	assets, cov := market(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Sample(ctx, assets, cov, 0.02, 5000, rng.New(1), Options{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
