// Package reporting renders Markdown and CSV reports over stored runs and
// study results.
package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"diffusion-lab/internal/orchestrator"
)

// Report represents the lab report structure.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunCount    int

	RunSummary RunSummary

	// Per-kind tables, each sorted by created_at then run_id
	BachelierRuns  []BachelierRow
	DiffusionRuns  []DiffusionRow
	FractionalRuns []FractionalRow
	RegimeRuns     []RegimeRow
	OptionRuns     []OptionRow
	PortfolioRuns  []PortfolioRow

	Studies []*orchestrator.StudyResult

	// Replay references (kind, run_id, seed)
	ReplayReferences []ReplayReferenceRow

	// Runs whose stored params or summary could not be decoded
	DecodeErrors []string

	// Filled in by the report pipeline
	DataQuality     DataQualitySection
	Reproducibility ReproducibilityMetadata
}

// DataQualitySection contains sufficiency checks over the stored runs.
type DataQualitySection struct {
	SufficiencyChecks []SufficiencyCheckRow
	IntegrityErrors   []string
	AllChecksPassed   bool
}

// SufficiencyCheckRow is one data sufficiency check.
type SufficiencyCheckRow struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// ReproducibilityMetadata describes how to regenerate the report.
type ReproducibilityMetadata struct {
	ReportTimestamp  time.Time
	GeneratorVersion string
	DataVersion      string // short hash of the stored run IDs
	ReplayCommitHash string
	ReplayCommand    string
}

// RunSummary describes the stored runs.
type RunSummary struct {
	ByKind       []KindCountRow
	FirstRunMs   int64 // Unix ms
	LastRunMs    int64 // Unix ms
	AvgDuration  float64
	TotalRuntime int64 // ms
}

// KindCountRow counts runs of one kind.
type KindCountRow struct {
	Kind  string
	Count int
}

// BachelierRow is one arithmetic Brownian run.
type BachelierRow struct {
	RunID             string
	Seed              uint64
	Paths             int
	Steps             int
	TheoryMean        float64
	EmpiricalMean     float64
	MeanErrorPct      float64
	TheoryVariance    float64
	EmpiricalVariance float64
	VarianceErrorPct  float64
}

// DiffusionRow is one heat-profile run.
type DiffusionRow struct {
	RunID       string
	Condition   string
	T           float64
	Sigma       float64
	PeakX       float64
	PeakDensity float64
	Mass        float64
	OverlayMean float64 // 0 without an overlay
	HasOverlay  bool
}

// FractionalRow is one fractional Brownian run.
type FractionalRow struct {
	RunID             string
	Seed              uint64
	Hurst             float64
	Points            int
	Lag1Autocorr      float64
	IncrementVariance float64
}

// RegimeRow is one regime-switching walk.
type RegimeRow struct {
	RunID           string
	Seed            uint64
	Points          int
	Regimes         int
	TurbulentShare  float64
	AbsLag1Autocorr float64
}

// OptionRow is one pricing run. Premiums are rounded to PremiumPlaces.
type OptionRow struct {
	RunID     string
	S         float64
	K         float64
	T         float64
	R         float64
	Sigma     float64
	Call      decimal.Decimal
	Put       decimal.Decimal
	ParityGap float64
}

// PortfolioRow is one portfolio optimisation run.
type PortfolioRow struct {
	RunID           string
	Seed            uint64
	Assets          int
	Samples         int
	NonFiniteSharpe int
	MaxSharpe       float64
	TangencyReturn  float64
	TangencyVol     float64
	MinVolatility   float64
	FrontierPoints  int
	CMLSlope        float64 // 0 when no CML was drawn
}

// ReplayReferenceRow lists replay identifiers.
type ReplayReferenceRow struct {
	Kind  string
	RunID string
	Seed  uint64
}
