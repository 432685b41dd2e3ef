// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/portfolio"
)

// Run store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendNone     = "none"
)

// Config is the process configuration shared by every command.
type Config struct {
	HTTPAddr         string `env:"LAB_HTTP_ADDR" envDefault:":8080"`
	MetricsNamespace string `env:"LAB_METRICS_NAMESPACE" envDefault:"diffusion_lab"`
	OutputDir        string `env:"LAB_OUTPUT_DIR" envDefault:"output"`

	PostgresDSN   string `env:"POSTGRES_DSN"`
	ClickHouseDSN string `env:"CLICKHOUSE_DSN"`
	SQLitePath    string `env:"LAB_SQLITE_PATH"`
	UseMemory     bool   `env:"LAB_USE_MEMORY"`

	Workers     int    `env:"LAB_WORKERS"`
	BandStride  int    `env:"LAB_BAND_STRIDE" envDefault:"1"`
	DefaultSeed uint64 `env:"LAB_DEFAULT_SEED" envDefault:"42"`

	Engine    EngineConfig    `envPrefix:"LAB_ENGINE_"`
	Portfolio PortfolioConfig `envPrefix:"LAB_PORTFOLIO_"`
}

// EngineConfig holds the ensemble defaults.
type EngineConfig struct {
	S0    float64 `env:"S0" envDefault:"100"`
	Sigma float64 `env:"SIGMA" envDefault:"20"`
	Mu    float64 `env:"MU" envDefault:"0"`
	T     float64 `env:"T" envDefault:"1"`
	Dt    float64 `env:"DT" envDefault:"0.01"`
	N     int     `env:"N" envDefault:"200"`
}

// PortfolioConfig holds the synthetic market defaults.
type PortfolioConfig struct {
	Assets       int       `env:"ASSETS" envDefault:"5"`
	RiskFreeRate float64   `env:"RISK_FREE_RATE" envDefault:"0.02"`
	ReturnRange  []float64 `env:"RETURN_RANGE" envDefault:"0.05,0.15" envSeparator:","`
	VolRange     []float64 `env:"VOL_RANGE" envDefault:"0.10,0.25" envSeparator:","`
	Samples      int       `env:"SAMPLES" envDefault:"5000"`
	Bins         int       `env:"BINS" envDefault:"100"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks values the environment parser cannot.
func (c Config) Validate() error {
	var errs []error
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("LAB_WORKERS must be >= 0, got %d", c.Workers))
	}
	if c.BandStride < 1 {
		errs = append(errs, fmt.Errorf("LAB_BAND_STRIDE must be >= 1, got %d", c.BandStride))
	}
	if len(c.Portfolio.ReturnRange) != 2 {
		errs = append(errs, fmt.Errorf("LAB_PORTFOLIO_RETURN_RANGE must have 2 values, got %d", len(c.Portfolio.ReturnRange)))
	}
	if len(c.Portfolio.VolRange) != 2 {
		errs = append(errs, fmt.Errorf("LAB_PORTFOLIO_VOL_RANGE must have 2 values, got %d", len(c.Portfolio.VolRange)))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// RunBackend names the run store backend: memory when requested, then
// PostgreSQL, then SQLite, else none.
func (c Config) RunBackend() string {
	switch {
	case c.UseMemory:
		return BackendMemory
	case c.PostgresDSN != "":
		return BackendPostgres
	case c.SQLitePath != "":
		return BackendSQLite
	default:
		return BackendNone
	}
}

// DiffusionParams returns the ensemble defaults as params.
func (c Config) DiffusionParams() domain.DiffusionParams {
	p := domain.DefaultDiffusionParams()
	p.S0 = c.Engine.S0
	p.Sigma = c.Engine.Sigma
	p.Mu = c.Engine.Mu
	p.DriftEnabled = c.Engine.Mu != 0
	p.T = c.Engine.T
	p.Dt = c.Engine.Dt
	p.N = c.Engine.N
	return p
}

// PortfolioParams returns the synthetic market defaults. Call after Validate.
func (c Config) PortfolioParams() portfolio.Config {
	return portfolio.Config{
		NumAssets:    c.Portfolio.Assets,
		RiskFreeRate: c.Portfolio.RiskFreeRate,
		ReturnRange:  [2]float64{c.Portfolio.ReturnRange[0], c.Portfolio.ReturnRange[1]},
		VolRange:     [2]float64{c.Portfolio.VolRange[0], c.Portfolio.VolRange[1]},
		Samples:      c.Portfolio.Samples,
		Bins:         c.Portfolio.Bins,
	}
}

// LoadEnvFile loads environment variables from a .env file if it exists.
// Variables already set in the environment are not overridden.
func LoadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
