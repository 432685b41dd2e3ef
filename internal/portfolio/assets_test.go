package portfolio

import (
	"errors"
	"testing"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/rng"
)

func TestGenerateAssets(t *testing.T) {
	cfg := DefaultConfig()
	assets, err := GenerateAssets(cfg, rng.New(1))
	if err != nil {
		t.Fatalf("GenerateAssets: %v", err)
	}
	if len(assets) != 5 {
		t.Fatalf("expected 5 assets, got %d", len(assets))
	}

	names := []string{"Asset A", "Asset B", "Asset C", "Asset D", "Asset E"}
	for i, a := range assets {
		if a.Name != names[i] {
			t.Errorf("asset %d name = %q, want %q", i, a.Name, names[i])
		}
		if a.ExpectedReturn < 0.05 || a.ExpectedReturn > 0.15 {
			t.Errorf("asset %d return %v out of range", i, a.ExpectedReturn)
		}
		if a.Volatility < 0.10 || a.Volatility > 0.25 {
			t.Errorf("asset %d vol %v out of range", i, a.Volatility)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	cases := map[string]func(c *Config){
		"too few assets":  func(c *Config) { c.NumAssets = 2 },
		"too many assets": func(c *Config) { c.NumAssets = 11 },
		"reversed vols":   func(c *Config) { c.VolRange = [2]float64{0.3, 0.1} },
		"zero vol":        func(c *Config) { c.VolRange = [2]float64{0, 0.1} },
		"no samples":      func(c *Config) { c.Samples = 0 },
		"no bins":         func(c *Config) { c.Bins = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, domain.ErrInvalidParams) {
				t.Errorf("expected ErrInvalidParams, got %v", err)
			}
		})
	}
}
