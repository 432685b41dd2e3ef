package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/storage"
	"diffusion-lab/internal/verification"
)

// DefaultMinRunsPerKind is the coverage threshold used when none is given.
const DefaultMinRunsPerKind = 1

// MaxReportedDivergences caps the integrity errors listed per check.
const MaxReportedDivergences = 20

// SufficiencyCheck represents one data sufficiency criterion.
type SufficiencyCheck struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// SufficiencyResult contains all checks.
type SufficiencyResult struct {
	Checks  []SufficiencyCheck
	AllPass bool
	Errors  []string // data integrity errors
}

// SufficiencyChecker validates the stored runs before reporting.
type SufficiencyChecker struct {
	runStore       storage.RunStore
	minRunsPerKind int
	verifier       *verification.ReplayVerifier // nil skips replay
}

// NewSufficiencyChecker creates a new sufficiency checker.
func NewSufficiencyChecker(runStore storage.RunStore, minRunsPerKind int, replayer verification.Replayer) *SufficiencyChecker {
	if minRunsPerKind < 1 {
		minRunsPerKind = DefaultMinRunsPerKind
	}
	c := &SufficiencyChecker{runStore: runStore, minRunsPerKind: minRunsPerKind}
	if replayer != nil {
		c.verifier = verification.NewReplayVerifier(runStore, replayer)
	}
	return c
}

// Check performs the sufficiency checks:
//  1. Every run kind has at least minRunsPerKind stored runs
//  2. Stored run IDs are unique across kinds
//  3. Every stored run replays to the same summary (when a replayer is configured)
func (c *SufficiencyChecker) Check(ctx context.Context) (*SufficiencyResult, error) {
	result := &SufficiencyResult{
		Checks:  make([]SufficiencyCheck, 0, 3),
		AllPass: true,
		Errors:  []string{},
	}

	// Check 1: coverage per kind
	seen := make(map[string]domain.RunKind)
	var short []string
	minCount := -1
	for _, kind := range domain.RunKinds() {
		runs, err := c.runStore.GetByKind(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s runs: %w", kind, err)
		}
		if len(runs) < c.minRunsPerKind {
			short = append(short, string(kind))
		}
		if minCount < 0 || len(runs) < minCount {
			minCount = len(runs)
		}

		// Check 2 input: duplicate IDs across kinds
		for _, r := range runs {
			if other, ok := seen[r.RunID]; ok {
				result.Errors = append(result.Errors, fmt.Sprintf("run %s stored as both %s and %s", r.RunID, other, kind))
				continue
			}
			seen[r.RunID] = kind
		}
	}
	coverage := SufficiencyCheck{
		Name:      "Runs per kind",
		Threshold: fmt.Sprintf(">= %d", c.minRunsPerKind),
		Actual:    fmt.Sprintf("min %d", minCount),
		Pass:      len(short) == 0,
	}
	if !coverage.Pass {
		sort.Strings(short)
		coverage.Actual += " (short: " + strings.Join(short, ", ") + ")"
	}
	c.add(result, coverage)

	c.add(result, SufficiencyCheck{
		Name:      "Unique run IDs",
		Threshold: "0 duplicates",
		Actual:    fmt.Sprintf("%d duplicates", len(result.Errors)),
		Pass:      len(result.Errors) == 0,
	})

	// Check 3: replay
	if c.verifier != nil {
		report, err := c.verifier.VerifyAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("replay verification: %w", err)
		}
		c.add(result, SufficiencyCheck{
			Name:      "Replay verification",
			Threshold: "all runs match",
			Actual:    fmt.Sprintf("%d/%d match", report.MatchedRuns, report.TotalRuns),
			Pass:      report.DivergentRuns == 0,
		})

		reported := 0
		for _, r := range report.Results {
			if r.Match {
				continue
			}
			if reported == MaxReportedDivergences {
				result.Errors = append(result.Errors, fmt.Sprintf("%d more divergent runs", report.DivergentRuns-reported))
				break
			}
			result.Errors = append(result.Errors, describeDivergence(r))
			reported++
		}
	}

	return result, nil
}

func (c *SufficiencyChecker) add(result *SufficiencyResult, check SufficiencyCheck) {
	result.Checks = append(result.Checks, check)
	if !check.Pass {
		result.AllPass = false
	}
}

// describeDivergence renders the first divergent field of a replayed run.
func describeDivergence(r verification.VerificationResult) string {
	msg := fmt.Sprintf("replay %s %s diverged", r.Kind, r.RunID)
	if len(r.Divergences) > 0 {
		d := r.Divergences[0]
		msg += fmt.Sprintf(": %s stored=%v replayed=%v", d.Field, d.Expected, d.Actual)
		if len(r.Divergences) > 1 {
			msg += fmt.Sprintf(" (+%d fields)", len(r.Divergences)-1)
		}
	}
	return msg
}
