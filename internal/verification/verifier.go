// Package verification checks produced artefacts against their structural
// invariants and verifies stored runs by replaying them.
package verification

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"diffusion-lab/internal/domain"
)

// FloatTolerance is the absolute tolerance for float64 comparisons of replayed summaries.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string // dotted path into the record
	Expected any    // stored value
	Actual   any    // replayed value
}

// VerificationResult contains the result of verifying a single run.
type VerificationResult struct {
	RunID       string            // verified run ID
	Kind        domain.RunKind    // run kind
	Match       bool              // true if all fields match
	Divergences []FieldDivergence // list of divergent fields
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	TotalRuns     int                  // total runs verified
	MatchedRuns   int                  // runs that matched exactly
	DivergentRuns int                  // runs with divergences
	Results       []VerificationResult // individual results
}

// Verifier interface for run replay verification.
type Verifier interface {
	// VerifyRun loads the stored run, re-executes it with the same seed and
	// parameters, and compares the results.
	VerifyRun(ctx context.Context, runID string) (*VerificationResult, error)

	// VerifyAll verifies all stored runs.
	VerifyAll(ctx context.Context) (*VerificationReport, error)
}

// CompareRunRecords compares two run records and returns divergences.
// Timing fields are ignored; summaries are compared field by field using FloatTolerance.
func CompareRunRecords(stored, replayed *domain.RunRecord) []FieldDivergence {
	var divergences []FieldDivergence

	if stored.RunID != replayed.RunID {
		divergences = append(divergences, FieldDivergence{
			Field:    "RunID",
			Expected: stored.RunID,
			Actual:   replayed.RunID,
		})
	}

	if stored.Kind != replayed.Kind {
		divergences = append(divergences, FieldDivergence{
			Field:    "Kind",
			Expected: stored.Kind,
			Actual:   replayed.Kind,
		})
	}

	if stored.Seed != replayed.Seed {
		divergences = append(divergences, FieldDivergence{
			Field:    "Seed",
			Expected: stored.Seed,
			Actual:   replayed.Seed,
		})
	}

	divergences = append(divergences, compareJSON("Summary", stored.Summary, replayed.Summary)...)
	return divergences
}

// compareJSON decodes both documents and compares them structurally.
func compareJSON(field string, expected, actual json.RawMessage) []FieldDivergence {
	var e, a any
	if err := json.Unmarshal(expected, &e); err != nil {
		return []FieldDivergence{{Field: field, Expected: "valid JSON", Actual: err.Error()}}
	}
	if err := json.Unmarshal(actual, &a); err != nil {
		return []FieldDivergence{{Field: field, Expected: string(expected), Actual: err.Error()}}
	}
	var out []FieldDivergence
	compareValues(field, e, a, &out)
	return out
}

func compareValues(path string, e, a any, out *[]FieldDivergence) {
	switch ev := e.(type) {
	case map[string]any:
		av, ok := a.(map[string]any)
		if !ok {
			*out = append(*out, FieldDivergence{Field: path, Expected: e, Actual: a})
			return
		}
		keys := make([]string, 0, len(ev)+len(av))
		for k := range ev {
			keys = append(keys, k)
		}
		for k := range av {
			if _, seen := ev[k]; !seen {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			compareValues(path+"."+k, ev[k], av[k], out)
		}
	case []any:
		av, ok := a.([]any)
		if !ok || len(av) != len(ev) {
			*out = append(*out, FieldDivergence{Field: path, Expected: e, Actual: a})
			return
		}
		for i := range ev {
			compareValues(fmt.Sprintf("%s[%d]", path, i), ev[i], av[i], out)
		}
	case float64:
		av, ok := a.(float64)
		if !ok || !floatEquals(ev, av) {
			*out = append(*out, FieldDivergence{Field: path, Expected: e, Actual: a})
		}
	default:
		if e != a {
			*out = append(*out, FieldDivergence{Field: path, Expected: e, Actual: a})
		}
	}
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
