package domain

import "encoding/json"

// RunKind identifies the engine operation behind a run.
type RunKind string

// Run kinds
const (
	RunKindBachelier  RunKind = "bachelier"
	RunKindDiffusion  RunKind = "diffusion"
	RunKindFractional RunKind = "fbm"
	RunKindRegime     RunKind = "regime"
	RunKindOption     RunKind = "option"
	RunKindPortfolio  RunKind = "portfolio"
)

// Valid reports whether k is a known run kind.
func (k RunKind) Valid() bool {
	switch k {
	case RunKindBachelier, RunKindDiffusion, RunKindFractional, RunKindRegime, RunKindOption, RunKindPortfolio:
		return true
	}
	return false
}

// RunKinds returns every run kind in a stable order.
func RunKinds() []RunKind {
	return []RunKind{RunKindBachelier, RunKindDiffusion, RunKindFractional, RunKindRegime, RunKindOption, RunKindPortfolio}
}

// RunRecord is the persisted header of one engine run.
type RunRecord struct {
	RunID       string          `json:"run_id"` // deterministic hash of kind, seed and params
	Kind        RunKind         `json:"kind"`
	Seed        uint64          `json:"seed"`
	Params      json.RawMessage `json:"params"`
	Summary     json.RawMessage `json:"summary"`
	DurationMs  int64           `json:"duration_ms"`
	CreatedAtMs int64           `json:"created_at_ms"`
}

// EnsembleBand holds cross-sectional statistics of an ensemble at one time step.
type EnsembleBand struct {
	RunID      string  `json:"run_id"`
	StepIndex  int     `json:"step_index"`
	Time       float64 `json:"time"`
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
	P05        float64 `json:"p05"`
	P50        float64 `json:"p50"`
	P95        float64 `json:"p95"`
	TheoryMean float64 `json:"theory_mean"`
	TheoryStd  float64 `json:"theory_std"`
}

// Frontier row series
const (
	SeriesFrontier = "frontier"
	SeriesCML      = "cml"
)

// FrontierRow is one persisted point of a frontier or capital market line.
type FrontierRow struct {
	RunID      string  `json:"run_id"`
	Series     string  `json:"series"` // SeriesFrontier | SeriesCML
	PointIndex int     `json:"point_index"`
	Volatility float64 `json:"volatility"`
	Return     float64 `json:"return"`
}
