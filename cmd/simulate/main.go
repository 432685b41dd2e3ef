// Package main runs one engine operation from the command line.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"diffusion-lab/internal/config"
	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/metrics"
	"diffusion-lab/internal/observability"
	"diffusion-lab/internal/simulation"
	"diffusion-lab/internal/storage/backend"
)

func main() {
	config.LoadEnvFile(".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Parse flags
	kind := flag.String("kind", "bachelier", "Operation: bachelier, diffusion, fbm, regime, option, portfolio")
	params := flag.String("params", "", "JSON params applied over the defaults")
	seed := flag.Uint64("seed", cfg.DefaultSeed, "Seed (ignored by option)")
	randomSeed := flag.Bool("random-seed", false, "Draw the seed from the OS")

	// Common parameters; only flags set on the command line override defaults
	n := flag.Int("n", cfg.Engine.N, "Number of paths (bachelier)")
	sigma := flag.Float64("sigma", cfg.Engine.Sigma, "Volatility (bachelier, diffusion, option)")
	hurst := flag.Float64("hurst", 0.5, "Hurst exponent (fbm)")
	levels := flag.Int("levels", 0, "Refinement levels (fbm)")
	points := flag.Int("points", 0, "Series length (regime)")
	assets := flag.Int("assets", cfg.Portfolio.Assets, "Number of assets (portfolio)")
	strike := flag.Float64("k", 100, "Strike (option)")

	// Storage
	persist := flag.Bool("persist", false, "Persist the run to the configured stores")

	// Output
	outputJSON := flag.Bool("json", false, "Output the full result as JSON")

	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	// Setup logger
	logger := log.New(os.Stderr, "[simulate] ", log.LstdFlags)

	runKind := domain.RunKind(*kind)
	if !runKind.Valid() {
		logger.Fatalf("Invalid kind: %s. Must be one of %v", *kind, domain.RunKinds())
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	opts := simulation.RunnerOptions{
		Metrics:    observability.ForNamespace(cfg.MetricsNamespace),
		Logger:     logger,
		Workers:    cfg.Workers,
		BandStride: cfg.BandStride,
	}
	if *persist {
		stores, cleanup, err := backend.Open(ctx, cfg, logger)
		if err != nil {
			logger.Fatalf("Failed to create stores: %v", err)
		}
		defer cleanup()
		if stores.Runs == nil {
			logger.Fatal("--persist requires POSTGRES_DSN, LAB_SQLITE_PATH or LAB_USE_MEMORY")
		}
		opts.RunStore, opts.BandStore, opts.FrontierStore = stores.Runs, stores.Bands, stores.Frontiers
	}
	runner := simulation.NewRunner(opts)

	var runSeed *uint64
	if !*randomSeed {
		runSeed = seed
	}

	var result any
	switch runKind {
	case domain.RunKindBachelier:
		req := simulation.DefaultBachelierRequest()
		req.DiffusionParams = cfg.DiffusionParams()
		req.N = *n
		req.Sigma = *sigma
		applyParams(logger, *params, &req)
		req.Seed = runSeed
		result, err = runner.RunBachelier(ctx, req)

	case domain.RunKindDiffusion:
		req := simulation.DefaultDiffusionRequest()
		if set["sigma"] {
			req.Sigma = *sigma
		}
		applyParams(logger, *params, &req)
		req.Seed = runSeed
		result, err = runner.RunDiffusion(ctx, req)

	case domain.RunKindFractional:
		req := simulation.DefaultFractionalRequest()
		req.Hurst = *hurst
		if set["levels"] {
			req.Levels = *levels
		}
		applyParams(logger, *params, &req)
		req.Seed = runSeed
		result, err = runner.RunFractional(ctx, req)

	case domain.RunKindRegime:
		req := simulation.DefaultRegimeRequest()
		if set["points"] {
			req.Points = *points
		}
		applyParams(logger, *params, &req)
		req.Seed = runSeed
		result, err = runner.RunRegimeWalk(ctx, req)

	case domain.RunKindOption:
		in := domain.DefaultOptionInputs()
		in.K = *strike
		if set["sigma"] {
			in.Sigma = *sigma
		}
		applyParams(logger, *params, &in)
		result, err = runner.PriceOption(ctx, in)

	case domain.RunKindPortfolio:
		req := simulation.DefaultPortfolioRequest()
		req.Config = cfg.PortfolioParams()
		req.NumAssets = *assets
		applyParams(logger, *params, &req)
		req.Seed = runSeed
		result, err = runner.RunPortfolio(ctx, req)
	}
	if err != nil {
		logger.Fatalf("%s run failed: %v", runKind, err)
	}

	// Output result
	if *outputJSON {
		output, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			logger.Fatalf("encode result: %v", err)
		}
		fmt.Println(string(output))
		return
	}
	printResult(result)
}

// applyParams decodes the --params JSON over dst.
func applyParams(logger *log.Logger, params string, dst any) {
	if params == "" {
		return
	}
	if err := json.Unmarshal([]byte(params), dst); err != nil {
		logger.Fatalf("Invalid --params: %v", err)
	}
}

// printResult outputs a human-readable summary.
func printResult(result any) {
	fmt.Println()
	switch r := result.(type) {
	case *simulation.BachelierResult:
		fmt.Println("=== Arithmetic Brownian Ensemble ===")
		fmt.Printf("Run ID:             %s\n", r.RunID)
		fmt.Printf("Seed:               %d\n", r.Seed)
		fmt.Printf("Paths x Steps:      %d x %d\n", len(r.Ensemble.Paths), r.Summary.Steps)
		printTerminal(r.Summary.Terminal)
		printDivergences(len(r.Divergences))

	case *simulation.DiffusionResult:
		fmt.Println("=== Diffusion Profile ===")
		fmt.Printf("Run ID:             %s\n", r.RunID)
		fmt.Printf("Condition:          %s\n", r.Profile.Condition)
		fmt.Printf("Points:             %d\n", r.Summary.Points)
		fmt.Printf("Peak:               u(%.4f) = %.6f\n", r.Summary.PeakX, r.Summary.PeakDensity)
		fmt.Printf("Mass:               %.6f\n", r.Summary.Mass)
		if r.Summary.Overlay != nil {
			fmt.Println()
			fmt.Println("Overlay:")
			printTerminal(*r.Summary.Overlay)
		}

	case *simulation.FractionalResult:
		fmt.Println("=== Fractional Brownian Series ===")
		fmt.Printf("Run ID:             %s\n", r.RunID)
		fmt.Printf("Seed:               %d\n", r.Seed)
		fmt.Printf("Hurst:              %.2f\n", r.Series.Hurst)
		printSeries("Model", r.Summary.Model)
		if r.Summary.Proxy != nil {
			printSeries("Market proxy", *r.Summary.Proxy)
		}
		fmt.Printf("Increment variance: %.6f\n", r.Summary.IncrementVariance)
		printDivergences(len(r.Divergences))

	case *simulation.RegimeResult:
		fmt.Println("=== Regime-Switching Walk ===")
		fmt.Printf("Run ID:             %s\n", r.RunID)
		fmt.Printf("Seed:               %d\n", r.Seed)
		fmt.Printf("Regimes:            %d\n", r.Summary.Regimes)
		fmt.Printf("Turbulent share:    %.2f%%\n", r.Summary.TurbulentShare*100)
		printSeries("Series", r.Summary.Series)

	case *simulation.OptionResult:
		fmt.Println("=== European Option ===")
		fmt.Printf("Run ID:             %s\n", r.RunID)
		fmt.Printf("Inputs:             S=%.2f K=%.2f T=%.4f r=%.4f sigma=%.4f\n",
			r.Inputs.S, r.Inputs.K, r.Inputs.T, r.Inputs.R, r.Inputs.Sigma)
		fmt.Printf("Call:               %.4f\n", r.Summary.Call)
		fmt.Printf("Put:                %.4f\n", r.Summary.Put)
		fmt.Printf("d1 / d2:            %.6f / %.6f\n", r.Summary.D1, r.Summary.D2)
		fmt.Printf("Parity gap:         %.2e\n", r.Summary.ParityGap)
		printDivergences(len(r.Divergences))

	case *simulation.PortfolioResult:
		s := r.Summary
		fmt.Println("=== Portfolio Optimisation ===")
		fmt.Printf("Run ID:             %s\n", r.RunID)
		fmt.Printf("Seed:               %d\n", r.Seed)
		fmt.Printf("Assets / Samples:   %d / %d\n", s.Assets, s.Samples)
		fmt.Printf("Non-finite Sharpe:  %d\n", s.NonFiniteSharpe)
		if s.MaxSharpe != nil {
			fmt.Printf("Max Sharpe:         %.4f (return %.4f, vol %.4f)\n", s.MaxSharpe.Sharpe, s.MaxSharpe.Return, s.MaxSharpe.Volatility)
		}
		if s.MinVolatility != nil {
			fmt.Printf("Min volatility:     %.4f (return %.4f)\n", s.MinVolatility.Volatility, s.MinVolatility.Return)
		}
		fmt.Printf("Frontier points:    %d\n", s.FrontierPoints)
		if s.CMLSlope != nil {
			fmt.Printf("CML slope:          %.4f\n", *s.CMLSlope)
		}
		fmt.Printf("Min eigenvalue:     %.6f\n", s.MinEigenvalue)
		printDivergences(len(r.Divergences))
	}
}

func printTerminal(t metrics.TerminalSummary) {
	fmt.Printf("  Mean:             %.4f (theory %.4f, %.2f%%)\n", t.EmpiricalMean, t.TheoryMean, t.MeanErrorPct)
	fmt.Printf("  Variance:         %.4f (theory %.4f, %.2f%%)\n", t.EmpiricalVariance, t.TheoryVariance, t.VarianceErrorPct)
}

func printSeries(label string, s metrics.SeriesSummary) {
	fmt.Printf("%s:\n", label)
	fmt.Printf("  Points:           %d\n", s.Points)
	fmt.Printf("  Lag-1 autocorr:   %.4f\n", s.Lag1Autocorr)
	fmt.Printf("  |r| lag-1:        %.4f\n", s.AbsLag1Autocorr)
}

func printDivergences(n int) {
	if n > 0 {
		fmt.Printf("Invariant divergences: %d (see --json)\n", n)
	}
}
