package pipeline

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"diffusion-lab/internal/observability"
	"diffusion-lab/internal/orchestrator"
	"diffusion-lab/internal/simulation"
	"diffusion-lab/internal/storage/memory"
)

var fixedTime = time.Date(2025, 1, 4, 12, 0, 0, 0, time.UTC)

func newRunner(t *testing.T, runs *memory.RunStore) *simulation.Runner {
	t.Helper()
	now := fixedTime
	return simulation.NewRunner(simulation.RunnerOptions{
		RunStore:      runs,
		BandStore:     memory.NewBandStore(),
		FrontierStore: memory.NewFrontierStore(),
		Metrics:       observability.NewMetricsWith(prometheus.NewRegistry(), "test"),
		Logger:        log.New(io.Discard, "", 0),
		Clock: func() time.Time {
			now = now.Add(time.Millisecond)
			return now
		},
	})
}

func TestLabPipeline_Run(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	runs := memory.NewRunStore()
	runner := newRunner(t, runs)
	if err := LoadFixtures(ctx, runner); err != nil {
		t.Fatalf("Failed to load fixtures: %v", err)
	}

	p := NewLabPipeline(runs, dir).
		WithSufficiencyChecker(1, runner).
		WithClock(func() time.Time { return fixedTime })

	report, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("Pipeline run failed: %v", err)
	}

	// 1 bachelier, 3 diffusion, 1 fbm, 1 regime, 3 option, 1 portfolio
	if report.RunCount != 10 {
		t.Errorf("Expected 10 runs, got %d", report.RunCount)
	}
	if !report.DataQuality.AllChecksPassed {
		t.Errorf("Expected all checks to pass: %+v", report.DataQuality)
	}
	if len(report.DataQuality.SufficiencyChecks) != 3 {
		t.Errorf("Expected 3 checks, got %d", len(report.DataQuality.SufficiencyChecks))
	}
	if report.Reproducibility.DataVersion == "" || len(report.Reproducibility.DataVersion) != 12 {
		t.Errorf("Unexpected data version %q", report.Reproducibility.DataVersion)
	}

	for _, f := range []string{ReportFile, OptionPricesFile, ReplayRefsFile} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Errorf("Expected file %s: %v", f, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, StudyReportFile)); !os.IsNotExist(err) {
		t.Errorf("Study report should not be written without studies")
	}

	md, _ := os.ReadFile(filepath.Join(dir, ReportFile))
	for _, want := range []string{"## Data Quality", "| Replay verification | all runs match | 10/10 match | PASS |", "## Reproducibility"} {
		if !strings.Contains(string(md), want) {
			t.Errorf("REPORT.md missing %q", want)
		}
	}

	csv, _ := os.ReadFile(filepath.Join(dir, OptionPricesFile))
	if lines := strings.Count(string(csv), "\n"); lines != 4 {
		t.Errorf("Expected header + 3 option rows, got %d lines", lines)
	}
}

func TestLabPipeline_Deterministic(t *testing.T) {
	ctx := context.Background()

	var outputs []string
	for i := 0; i < 2; i++ {
		dir := t.TempDir()
		runs := memory.NewRunStore()
		runner := newRunner(t, runs)
		if err := LoadFixtures(ctx, runner); err != nil {
			t.Fatalf("Failed to load fixtures: %v", err)
		}

		p := NewLabPipeline(runs, dir).WithClock(func() time.Time { return fixedTime })
		if _, err := p.Run(ctx); err != nil {
			t.Fatalf("Pipeline run failed: %v", err)
		}

		content, err := os.ReadFile(filepath.Join(dir, ReportFile))
		if err != nil {
			t.Fatalf("read report: %v", err)
		}
		outputs = append(outputs, string(content))
	}

	if outputs[0] != outputs[1] {
		t.Error("REPORT.md differs between identical runs")
	}
}

func TestLabPipeline_InsufficientData(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	runs := memory.NewRunStore()
	runner := newRunner(t, runs)
	in := simulation.DefaultBachelierRequest()
	seed := FixtureSeed
	in.Seed = &seed
	if _, err := runner.RunBachelier(ctx, in); err != nil {
		t.Fatalf("run: %v", err)
	}

	report, err := NewLabPipeline(runs, dir).WithSufficiencyChecker(1, nil).Run(ctx)
	if err != nil {
		t.Fatalf("Pipeline run failed: %v", err)
	}

	if report.DataQuality.AllChecksPassed {
		t.Fatal("Expected coverage check to fail")
	}
	coverage := report.DataQuality.SufficiencyChecks[0]
	if coverage.Pass || !strings.Contains(coverage.Actual, "short: diffusion, fbm, option, portfolio, regime") {
		t.Errorf("Unexpected coverage check: %+v", coverage)
	}
	// no replayer, no replay check
	if len(report.DataQuality.SufficiencyChecks) != 2 {
		t.Errorf("Expected 2 checks without a replayer, got %d", len(report.DataQuality.SufficiencyChecks))
	}
}

func TestLabPipeline_WithStudies(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	runs := memory.NewRunStore()
	runner := newRunner(t, runs)
	orch := orchestrator.New(orchestrator.Options{
		Runner:      runner,
		Metrics:     observability.NewMetricsWith(prometheus.NewRegistry(), "test"),
		Seed:        7,
		PathCounts:  []int{10, 50},
		Hursts:      []float64{0.3, 0.7},
		HurstLevels: 8,
		AssetCounts: []int{2, 3},
	})
	result, err := orch.Run(ctx)
	if err != nil {
		t.Fatalf("studies: %v", err)
	}

	report, err := NewLabPipeline(runs, dir).
		WithStudies(result.Studies).
		WithClock(func() time.Time { return fixedTime }).
		Run(ctx)
	if err != nil {
		t.Fatalf("Pipeline run failed: %v", err)
	}

	for _, name := range []string{orchestrator.StudyConvergence, orchestrator.StudyHurst, orchestrator.StudyPortfolio} {
		if _, err := os.Stat(filepath.Join(dir, StudyCSVFile(name))); err != nil {
			t.Errorf("Expected study CSV for %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, StudyReportFile)); err != nil {
		t.Errorf("Expected %s: %v", StudyReportFile, err)
	}

	// the 2-asset portfolio run is rejected and surfaces as an integrity error
	if report.DataQuality.AllChecksPassed {
		t.Error("Expected study errors to fail data quality")
	}
	found := false
	for _, e := range report.DataQuality.IntegrityErrors {
		if strings.HasPrefix(e, "study "+orchestrator.StudyPortfolio+": assets=2") {
			found = true
		}
	}
	if !found {
		t.Errorf("Missing portfolio study error in %v", report.DataQuality.IntegrityErrors)
	}
}
