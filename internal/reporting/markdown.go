package reporting

import (
	"fmt"
	"strings"
	"time"

	"diffusion-lab/internal/orchestrator"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Diffusion Lab Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Runs: %d | Studies: %d\n\n", r.RunCount, len(r.Studies)))

	// Run Summary
	sb.WriteString("## Run Summary\n\n")
	sb.WriteString("| Kind | Runs |\n")
	sb.WriteString("|------|------|\n")
	for _, k := range r.RunSummary.ByKind {
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", k.Kind, k.Count))
	}
	sb.WriteString("\n")
	if r.RunCount > 0 {
		sb.WriteString(fmt.Sprintf("First run (ms): %d | Last run (ms): %d | Avg duration: %.1f ms\n\n",
			r.RunSummary.FirstRunMs, r.RunSummary.LastRunMs, r.RunSummary.AvgDuration))
	}

	// Bachelier
	sb.WriteString("## Arithmetic Brownian Ensembles\n\n")
	if len(r.BachelierRuns) > 0 {
		sb.WriteString("| Run | Seed | Paths | Steps | Theory Mean | Mean | Mean Err% | Theory Var | Var | Var Err% |\n")
		sb.WriteString("|-----|------|-------|-------|-------------|------|-----------|------------|-----|----------|\n")
		for _, b := range r.BachelierRuns {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %.4f | %.4f | %.2f | %.4f | %.4f | %.2f |\n",
				b.RunID, b.Seed, b.Paths, b.Steps,
				b.TheoryMean, b.EmpiricalMean, b.MeanErrorPct,
				b.TheoryVariance, b.EmpiricalVariance, b.VarianceErrorPct))
		}
	} else {
		sb.WriteString("No ensemble runs available.\n")
	}
	sb.WriteString("\n")

	// Diffusion profiles
	sb.WriteString("## Diffusion Profiles\n\n")
	if len(r.DiffusionRuns) > 0 {
		sb.WriteString("| Run | Condition | t | Sigma | Peak x | Peak u | Mass | Overlay Mean |\n")
		sb.WriteString("|-----|-----------|---|-------|--------|--------|------|--------------|\n")
		for _, d := range r.DiffusionRuns {
			overlay := "-"
			if d.HasOverlay {
				overlay = fmt.Sprintf("%.4f", d.OverlayMean)
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %.4f | %.4f | %.4f | %.6f | %.4f | %s |\n",
				d.RunID, d.Condition, d.T, d.Sigma, d.PeakX, d.PeakDensity, d.Mass, overlay))
		}
	} else {
		sb.WriteString("No diffusion profiles available.\n")
	}
	sb.WriteString("\n")

	// Fractional
	sb.WriteString("## Fractional Brownian Series\n\n")
	if len(r.FractionalRuns) > 0 {
		sb.WriteString("| Run | Seed | H | Points | Lag-1 Autocorr | Increment Var |\n")
		sb.WriteString("|-----|------|---|--------|----------------|---------------|\n")
		for _, f := range r.FractionalRuns {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.2f | %d | %.4f | %.6f |\n",
				f.RunID, f.Seed, f.Hurst, f.Points, f.Lag1Autocorr, f.IncrementVariance))
		}
	} else {
		sb.WriteString("No fractional series available.\n")
	}
	sb.WriteString("\n")

	// Regime walks
	sb.WriteString("## Regime-Switching Walks\n\n")
	if len(r.RegimeRuns) > 0 {
		sb.WriteString("| Run | Seed | Points | Regimes | Turbulent Share | Abs Return Lag-1 |\n")
		sb.WriteString("|-----|------|--------|---------|-----------------|------------------|\n")
		for _, w := range r.RegimeRuns {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %.4f | %.4f |\n",
				w.RunID, w.Seed, w.Points, w.Regimes, w.TurbulentShare, w.AbsLag1Autocorr))
		}
	} else {
		sb.WriteString("No regime walks available.\n")
	}
	sb.WriteString("\n")

	// Options
	sb.WriteString("## Option Prices\n\n")
	if len(r.OptionRuns) > 0 {
		sb.WriteString("| Run | S | K | T | r | Sigma | Call | Put | Parity Gap |\n")
		sb.WriteString("|-----|---|---|---|---|-------|------|-----|------------|\n")
		for _, o := range r.OptionRuns {
			sb.WriteString(fmt.Sprintf("| %s | %.2f | %.2f | %.4f | %.4f | %.4f | %s | %s | %.2e |\n",
				o.RunID, o.S, o.K, o.T, o.R, o.Sigma,
				o.Call.StringFixed(PremiumPlaces), o.Put.StringFixed(PremiumPlaces), o.ParityGap))
		}
	} else {
		sb.WriteString("No option prices available.\n")
	}
	sb.WriteString("\n")

	// Portfolios
	sb.WriteString("## Portfolio Optimisation\n\n")
	if len(r.PortfolioRuns) > 0 {
		sb.WriteString("| Run | Seed | Assets | Samples | Non-finite | Max Sharpe | Tangency Return | Tangency Vol | Min Vol | Frontier Pts | CML Slope |\n")
		sb.WriteString("|-----|------|--------|---------|------------|------------|-----------------|--------------|---------|--------------|-----------|\n")
		for _, p := range r.PortfolioRuns {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d | %.4f | %.4f | %.4f | %.4f | %d | %.4f |\n",
				p.RunID, p.Seed, p.Assets, p.Samples, p.NonFiniteSharpe,
				p.MaxSharpe, p.TangencyReturn, p.TangencyVol, p.MinVolatility,
				p.FrontierPoints, p.CMLSlope))
		}
	} else {
		sb.WriteString("No portfolio runs available.\n")
	}
	sb.WriteString("\n")

	// Studies
	sb.WriteString("## Studies\n\n")
	if len(r.Studies) > 0 {
		for _, s := range r.Studies {
			writeStudy(&sb, s)
		}
	} else {
		sb.WriteString("No studies available.\n\n")
	}

	// Data quality
	if len(r.DataQuality.SufficiencyChecks) > 0 || len(r.DataQuality.IntegrityErrors) > 0 {
		writeDataQuality(&sb, r.DataQuality)
	}

	// Decode errors
	if len(r.DecodeErrors) > 0 {
		sb.WriteString("## Decode Errors\n\n")
		for _, e := range r.DecodeErrors {
			sb.WriteString(fmt.Sprintf("- %s\n", e))
		}
		sb.WriteString("\n")
	}

	// Replay References
	sb.WriteString("## Replay References\n\n")
	if len(r.ReplayReferences) > 0 {
		sb.WriteString("| Kind | Run | Seed |\n")
		sb.WriteString("|------|-----|------|\n")
		for _, ref := range r.ReplayReferences {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d |\n", ref.Kind, ref.RunID, ref.Seed))
		}
	} else {
		sb.WriteString("No replay references available.\n")
	}
	sb.WriteString("\n")

	// Reproducibility
	if rep := r.Reproducibility; rep.GeneratorVersion != "" {
		sb.WriteString("## Reproducibility\n\n")
		sb.WriteString(fmt.Sprintf("- Report timestamp: %s\n", rep.ReportTimestamp.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("- Generator version: %s\n", rep.GeneratorVersion))
		sb.WriteString(fmt.Sprintf("- Data version: %s\n", rep.DataVersion))
		sb.WriteString(fmt.Sprintf("- Commit: %s\n", rep.ReplayCommitHash))
		sb.WriteString(fmt.Sprintf("- Replay command: `%s`\n\n", rep.ReplayCommand))
	}

	return sb.String()
}

func writeDataQuality(sb *strings.Builder, dq DataQualitySection) {
	sb.WriteString("## Data Quality\n\n")
	if len(dq.SufficiencyChecks) > 0 {
		sb.WriteString("| Check | Threshold | Actual | Status |\n")
		sb.WriteString("|-------|-----------|--------|--------|\n")
		for _, c := range dq.SufficiencyChecks {
			status := "PASS"
			if !c.Pass {
				status = "FAIL"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", c.Name, c.Threshold, c.Actual, status))
		}
		sb.WriteString("\n")
	}
	for _, e := range dq.IntegrityErrors {
		sb.WriteString(fmt.Sprintf("- %s\n", e))
	}
	if len(dq.IntegrityErrors) > 0 {
		sb.WriteString("\n")
	}
	if dq.AllChecksPassed {
		sb.WriteString("All checks passed.\n\n")
	} else {
		sb.WriteString("**Some checks failed.**\n\n")
	}
}

// RenderStudyMarkdown renders study results without stored runs.
func RenderStudyMarkdown(studies []*orchestrator.StudyResult, generatedAt time.Time) string {
	var sb strings.Builder
	sb.WriteString("# Study Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", generatedAt.Format(time.RFC3339)))
	for _, s := range studies {
		writeStudy(&sb, s)
	}
	return sb.String()
}

func writeStudy(sb *strings.Builder, s *orchestrator.StudyResult) {
	sb.WriteString(fmt.Sprintf("### %s\n\n", s.Name))
	sb.WriteString(fmt.Sprintf("Study ID: `%s` | Seed: %d\n\n", s.StudyID, s.Seed))

	if len(s.Rows) > 0 {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | Error%% | Run |\n", s.Columns[0], s.Columns[1], s.Columns[2]))
		sb.WriteString("|---|---|---|---|---|\n")
		for _, row := range s.Rows {
			sb.WriteString(fmt.Sprintf("| %g | %.6f | %.6f | %.2f | %s |\n",
				row.Param, row.Value, row.Reference, row.ErrorPct, row.RunID))
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("No rows.\n\n")
	}

	for _, f := range s.Findings {
		sb.WriteString(fmt.Sprintf("- %s\n", f))
	}
	for _, e := range s.Errors {
		sb.WriteString(fmt.Sprintf("- **error**: %s\n", e))
	}
	if len(s.Findings)+len(s.Errors) > 0 {
		sb.WriteString("\n")
	}
}
