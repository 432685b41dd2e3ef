package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/observability"
	"diffusion-lab/internal/orchestrator"
	"diffusion-lab/internal/simulation"
	"diffusion-lab/internal/storage"
)

// PremiumPlaces is the number of decimal places option premiums are rounded to.
const PremiumPlaces = 4

// Generator produces reports from stored data.
type Generator struct {
	runStore storage.RunStore
	metrics  *observability.Metrics
	now      func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(runStore storage.RunStore) *Generator {
	return &Generator{
		runStore: runStore,
		metrics:  observability.DefaultMetrics,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithMetrics sets the metrics instance the generator reports to.
func (g *Generator) WithMetrics(m *observability.Metrics) *Generator {
	g.metrics = m
	return g
}

// Generate produces a report over every stored run plus the given study results.
func (g *Generator) Generate(ctx context.Context, studies ...*orchestrator.StudyResult) (*Report, error) {
	report := &Report{
		GeneratedAt: g.now(),
		Studies:     studies,
	}

	var all []*domain.RunRecord
	for _, kind := range domain.RunKinds() {
		runs, err := g.runStore.GetByKind(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("load %s runs: %w", kind, err)
		}
		report.RunSummary.ByKind = append(report.RunSummary.ByKind, KindCountRow{Kind: string(kind), Count: len(runs)})

		for _, run := range runs {
			if err := g.addRun(report, run); err != nil {
				report.DecodeErrors = append(report.DecodeErrors, fmt.Sprintf("%s %s: %v", run.Kind, run.RunID, err))
			}
		}
		all = append(all, runs...)
	}

	report.RunCount = len(all)
	report.RunSummary = summarizeRuns(all, report.RunSummary.ByKind)
	report.ReplayReferences = replayReferences(all)

	g.metrics.ReportsGenerated.Inc()
	return report, nil
}

// addRun decodes a stored run into the table for its kind.
func (g *Generator) addRun(r *Report, run *domain.RunRecord) error {
	switch run.Kind {
	case domain.RunKindBachelier:
		var s simulation.BachelierSummary
		if err := json.Unmarshal(run.Summary, &s); err != nil {
			return err
		}
		t := s.Terminal
		r.BachelierRuns = append(r.BachelierRuns, BachelierRow{
			RunID:             run.RunID,
			Seed:              run.Seed,
			Paths:             t.Paths,
			Steps:             s.Steps,
			TheoryMean:        t.TheoryMean,
			EmpiricalMean:     t.EmpiricalMean,
			MeanErrorPct:      t.MeanErrorPct,
			TheoryVariance:    t.TheoryVariance,
			EmpiricalVariance: t.EmpiricalVariance,
			VarianceErrorPct:  t.VarianceErrorPct,
		})

	case domain.RunKindDiffusion:
		var p simulation.DiffusionParams
		var s simulation.DiffusionSummary
		if err := decode(run, &p, &s); err != nil {
			return err
		}
		row := DiffusionRow{
			RunID:       run.RunID,
			Condition:   string(p.Condition),
			T:           p.T,
			Sigma:       p.Sigma,
			PeakX:       s.PeakX,
			PeakDensity: s.PeakDensity,
			Mass:        s.Mass,
		}
		if s.Overlay != nil {
			row.HasOverlay = true
			row.OverlayMean = s.Overlay.EmpiricalMean
		}
		r.DiffusionRuns = append(r.DiffusionRuns, row)

	case domain.RunKindFractional:
		var p simulation.FractionalParams
		var s simulation.FractionalSummary
		if err := decode(run, &p, &s); err != nil {
			return err
		}
		r.FractionalRuns = append(r.FractionalRuns, FractionalRow{
			RunID:             run.RunID,
			Seed:              run.Seed,
			Hurst:             p.Hurst,
			Points:            s.Model.Points,
			Lag1Autocorr:      s.Model.Lag1Autocorr,
			IncrementVariance: s.IncrementVariance,
		})

	case domain.RunKindRegime:
		var s simulation.RegimeSummary
		if err := json.Unmarshal(run.Summary, &s); err != nil {
			return err
		}
		r.RegimeRuns = append(r.RegimeRuns, RegimeRow{
			RunID:           run.RunID,
			Seed:            run.Seed,
			Points:          s.Series.Points,
			Regimes:         s.Regimes,
			TurbulentShare:  s.TurbulentShare,
			AbsLag1Autocorr: s.Series.AbsLag1Autocorr,
		})

	case domain.RunKindOption:
		var in domain.OptionInputs
		var s simulation.OptionSummary
		if err := decode(run, &in, &s); err != nil {
			return err
		}
		r.OptionRuns = append(r.OptionRuns, OptionRow{
			RunID:     run.RunID,
			S:         in.S,
			K:         in.K,
			T:         in.T,
			R:         in.R,
			Sigma:     in.Sigma,
			Call:      Premium(s.Call),
			Put:       Premium(s.Put),
			ParityGap: s.ParityGap,
		})

	case domain.RunKindPortfolio:
		var s simulation.PortfolioSummary
		if err := json.Unmarshal(run.Summary, &s); err != nil {
			return err
		}
		row := PortfolioRow{
			RunID:           run.RunID,
			Seed:            run.Seed,
			Assets:          s.Assets,
			Samples:         s.Samples,
			NonFiniteSharpe: s.NonFiniteSharpe,
			FrontierPoints:  s.FrontierPoints,
		}
		if s.MaxSharpe != nil {
			row.MaxSharpe = s.MaxSharpe.Sharpe
			row.TangencyReturn = s.MaxSharpe.Return
			row.TangencyVol = s.MaxSharpe.Volatility
		}
		if s.MinVolatility != nil {
			row.MinVolatility = s.MinVolatility.Volatility
		}
		if s.CMLSlope != nil {
			row.CMLSlope = *s.CMLSlope
		}
		r.PortfolioRuns = append(r.PortfolioRuns, row)

	default:
		return fmt.Errorf("unknown run kind")
	}
	return nil
}

func decode(run *domain.RunRecord, params, summary any) error {
	if err := json.Unmarshal(run.Params, params); err != nil {
		return fmt.Errorf("params: %w", err)
	}
	if err := json.Unmarshal(run.Summary, summary); err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	return nil
}

// Premium rounds an option premium to PremiumPlaces decimal places.
func Premium(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(PremiumPlaces)
}

// summarizeRuns computes the time range and duration statistics of runs.
func summarizeRuns(runs []*domain.RunRecord, byKind []KindCountRow) RunSummary {
	s := RunSummary{ByKind: byKind}
	if len(runs) == 0 {
		return s
	}

	s.FirstRunMs = runs[0].CreatedAtMs
	s.LastRunMs = runs[0].CreatedAtMs
	for _, r := range runs {
		if r.CreatedAtMs < s.FirstRunMs {
			s.FirstRunMs = r.CreatedAtMs
		}
		if r.CreatedAtMs > s.LastRunMs {
			s.LastRunMs = r.CreatedAtMs
		}
		s.TotalRuntime += r.DurationMs
	}
	s.AvgDuration = float64(s.TotalRuntime) / float64(len(runs))
	return s
}

// replayReferences lists every run sorted by (kind, run_id).
func replayReferences(runs []*domain.RunRecord) []ReplayReferenceRow {
	rows := make([]ReplayReferenceRow, len(runs))
	for i, r := range runs {
		rows[i] = ReplayReferenceRow{Kind: string(r.Kind), RunID: r.RunID, Seed: r.Seed}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Kind != rows[j].Kind {
			return rows[i].Kind < rows[j].Kind
		}
		return rows[i].RunID < rows[j].RunID
	})
	return rows
}
