// Package main runs the batch studies and writes their reports.
// Executes: convergence → Hurst sweep → portfolio sweep → reporting
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"diffusion-lab/internal/config"
	"diffusion-lab/internal/observability"
	"diffusion-lab/internal/orchestrator"
	"diffusion-lab/internal/pipeline"
	"diffusion-lab/internal/simulation"
	"diffusion-lab/internal/storage/backend"
	"diffusion-lab/internal/storage/memory"
)

func main() {
	config.LoadEnvFile(".env")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Parse flags
	outputDir := flag.String("output-dir", cfg.OutputDir, "Output directory for generated files")
	seed := flag.Uint64("seed", cfg.DefaultSeed, "Seed shared by every run of a study")
	hurstLevels := flag.Int("hurst-levels", orchestrator.DefaultHurstLevels, "Refinement levels of the Hurst sweep series")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling studies...\n", sig)
		cancel()
	}()

	logger := log.New(os.Stdout, "", log.LstdFlags)

	stores, cleanup, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating stores: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	// Without a configured run store the report covers this invocation only
	if stores.Runs == nil {
		stores.Runs = memory.NewRunStore()
	}

	metrics := observability.ForNamespace(cfg.MetricsNamespace)
	runner := simulation.NewRunner(simulation.RunnerOptions{
		RunStore:      stores.Runs,
		BandStore:     stores.Bands,
		FrontierStore: stores.Frontiers,
		Metrics:       metrics,
		Logger:        logger,
		Workers:       cfg.Workers,
		BandStride:    cfg.BandStride,
	})

	// Phase 1-3: studies
	fmt.Println("=== Studies ===")
	orch := orchestrator.New(orchestrator.Options{
		Runner:      runner,
		Metrics:     metrics,
		Logger:      logger,
		Seed:        *seed,
		HurstLevels: *hurstLevels,
		Verbose:     *verbose,
	})

	result, err := orch.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Orchestrator error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Studies completed:\n")
	fmt.Printf("  Studies: %d\n", len(result.Studies))
	fmt.Printf("  Runs: %d\n", result.Runs)
	if len(result.Errors) > 0 {
		fmt.Printf("  Errors: %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}
	for _, s := range result.Studies {
		for _, f := range s.Findings {
			fmt.Printf("  %s: %s\n", s.Name, f)
		}
	}

	// Phase 4: reporting
	fmt.Println("\n=== Reporting ===")
	p := pipeline.NewLabPipeline(stores.Runs, *outputDir).
		WithStudies(result.Studies).
		WithReplayCommand(fmt.Sprintf("go run ./cmd/study --seed %d --hurst-levels %d", *seed, *hurstLevels))

	if _, err := p.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error running pipeline: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Reports generated successfully:")
	fmt.Printf("  - %s\n", filepath.Join(*outputDir, pipeline.ReportFile))
	fmt.Printf("  - %s\n", filepath.Join(*outputDir, pipeline.StudyReportFile))
	for _, s := range result.Studies {
		fmt.Printf("  - %s\n", filepath.Join(*outputDir, pipeline.StudyCSVFile(s.Name)))
	}
}
