// Package pipeline writes the lab report files: REPORT.md, the study report
// and the CSV exports, with data sufficiency checks and reproducibility metadata.
package pipeline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"diffusion-lab/internal/orchestrator"
	"diffusion-lab/internal/reporting"
	"diffusion-lab/internal/storage"
	"diffusion-lab/internal/verification"
)

// GeneratorVersion is recorded in the reproducibility section.
const GeneratorVersion = "1.0.0"

// Output file names.
const (
	ReportFile       = "REPORT.md"
	StudyReportFile  = "STUDY_REPORT.md"
	OptionPricesFile = "option_prices.csv"
	ReplayRefsFile   = "replay_references.csv"
)

// StudyCSVFile returns the CSV file name of a study.
func StudyCSVFile(name string) string {
	return "study_" + name + ".csv"
}

// LabPipeline orchestrates report generation.
type LabPipeline struct {
	reportGen          *reporting.Generator
	runStore           storage.RunStore
	sufficiencyChecker *SufficiencyChecker
	studies            []*orchestrator.StudyResult
	outputDir          string
	clock              func() time.Time
	integrityErrors    []string // additional integrity errors (e.g. failed study rows)
	replayCommand      string
}

// NewLabPipeline creates a new pipeline over the stored runs.
func NewLabPipeline(runStore storage.RunStore, outputDir string) *LabPipeline {
	return &LabPipeline{
		reportGen: reporting.NewGenerator(runStore),
		runStore:  runStore,
		outputDir: outputDir,
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// WithSufficiencyChecker adds data sufficiency checks. A nil replayer skips
// replay verification.
func (p *LabPipeline) WithSufficiencyChecker(minRunsPerKind int, replayer verification.Replayer) *LabPipeline {
	p.sufficiencyChecker = NewSufficiencyChecker(p.runStore, minRunsPerKind, replayer)
	return p
}

// WithStudies adds study results to the report and writes the study files.
// Study errors are reported as integrity errors.
func (p *LabPipeline) WithStudies(studies []*orchestrator.StudyResult) *LabPipeline {
	p.studies = append(p.studies, studies...)
	for _, s := range studies {
		for _, e := range s.Errors {
			p.integrityErrors = append(p.integrityErrors, fmt.Sprintf("study %s: %s", s.Name, e))
		}
	}
	return p
}

// WithClock sets a custom clock function for deterministic output.
func (p *LabPipeline) WithClock(clock func() time.Time) *LabPipeline {
	p.clock = clock
	p.reportGen = p.reportGen.WithClock(clock)
	return p
}

// WithReplayCommand sets the command recorded for regenerating the report.
func (p *LabPipeline) WithReplayCommand(cmd string) *LabPipeline {
	p.replayCommand = cmd
	return p
}

// Run executes the full pipeline and writes output files:
// - REPORT.md
// - option_prices.csv
// - replay_references.csv
// - STUDY_REPORT.md and study_<name>.csv when studies are attached
func (p *LabPipeline) Run(ctx context.Context) (*reporting.Report, error) {
	// Ensure output directory exists
	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return nil, err
	}

	// 1. Run sufficiency check FIRST (if configured)
	var dataQuality reporting.DataQualitySection
	if p.sufficiencyChecker != nil {
		suffResult, err := p.sufficiencyChecker.Check(ctx)
		if err != nil {
			return nil, err
		}
		dataQuality = convertToDataQuality(suffResult)
	} else {
		dataQuality.AllChecksPassed = true
	}

	// 2. Generate report
	report, err := p.reportGen.Generate(ctx, p.studies...)
	if err != nil {
		return nil, err
	}

	// Merge additional integrity errors
	integrity := append([]string{}, p.integrityErrors...)
	for _, e := range report.DecodeErrors {
		integrity = append(integrity, "decode "+e)
	}
	if len(integrity) > 0 {
		dataQuality.IntegrityErrors = append(dataQuality.IntegrityErrors, integrity...)
		dataQuality.AllChecksPassed = false
	}
	report.DataQuality = dataQuality

	// 3. Reproducibility metadata
	report.Reproducibility = reporting.ReproducibilityMetadata{
		ReportTimestamp:  p.clock(),
		GeneratorVersion: GeneratorVersion,
		DataVersion:      computeDataVersion(report.ReplayReferences),
		ReplayCommitHash: getGitCommitHash(),
		ReplayCommand:    p.buildReplayCommand(),
	}

	// 4. Write files
	files := map[string]string{
		ReportFile:       reporting.RenderMarkdown(report),
		OptionPricesFile: reporting.RenderOptionCSV(report.OptionRuns),
		ReplayRefsFile:   reporting.RenderReplayCSV(report.ReplayReferences),
	}
	if len(p.studies) > 0 {
		files[StudyReportFile] = reporting.RenderStudyMarkdown(p.studies, p.clock())
		for _, s := range p.studies {
			files[StudyCSVFile(s.Name)] = reporting.RenderStudyCSV(s)
		}
	}

	for name, content := range files {
		if err := os.WriteFile(filepath.Join(p.outputDir, name), []byte(content), 0644); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// buildReplayCommand returns the command to reproduce this report.
func (p *LabPipeline) buildReplayCommand() string {
	if p.replayCommand != "" {
		return p.replayCommand
	}
	return "go run ./cmd/report --use-fixtures"
}

// computeDataVersion hashes the stored (kind, run_id) pairs.
// Run IDs already cover seed and params, so equal versions mean equal data.
func computeDataVersion(refs []reporting.ReplayReferenceRow) string {
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = r.Kind + "|" + r.RunID
	}
	sort.Strings(parts)

	h := sha256.New()
	h.Write([]byte("RUNS\n"))
	h.Write([]byte(strings.Join(parts, "\n")))
	return hex.EncodeToString(h.Sum(nil))[:12] // short hash
}

// getGitCommitHash returns current git commit hash or "unknown" if not in git repo.
func getGitCommitHash() string {
	cmd := exec.Command("git", "rev-parse", "--short", "HEAD")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "unknown"
	}
	return strings.TrimSpace(out.String())
}

// convertToDataQuality converts SufficiencyResult to reporting.DataQualitySection.
func convertToDataQuality(result *SufficiencyResult) reporting.DataQualitySection {
	checks := make([]reporting.SufficiencyCheckRow, len(result.Checks))
	for i, c := range result.Checks {
		checks[i] = reporting.SufficiencyCheckRow{
			Name:      c.Name,
			Threshold: c.Threshold,
			Actual:    c.Actual,
			Pass:      c.Pass,
		}
	}
	return reporting.DataQualitySection{
		SufficiencyChecks: checks,
		IntegrityErrors:   result.Errors,
		AllChecksPassed:   result.AllPass,
	}
}
