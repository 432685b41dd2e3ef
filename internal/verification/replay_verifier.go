package verification

import (
	"context"
	"errors"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/storage"
)

// ErrRunNotFound is returned when run ID doesn't exist.
var ErrRunNotFound = errors.New("run not found")

// Replayer re-executes a stored run from its kind, seed and params.
type Replayer interface {
	Replay(ctx context.Context, stored *domain.RunRecord) (*domain.RunRecord, error)
}

// ReplayVerifier implements Verifier interface.
type ReplayVerifier struct {
	runStore storage.RunStore
	replayer Replayer
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(runStore storage.RunStore, replayer Replayer) *ReplayVerifier {
	return &ReplayVerifier{runStore: runStore, replayer: replayer}
}

var _ Verifier = (*ReplayVerifier)(nil)

// VerifyRun verifies a single run by replaying it.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, runID string) (*VerificationResult, error) {
	stored, err := v.runStore.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return v.verify(ctx, stored)
}

// VerifyAll verifies every stored run of every kind.
func (v *ReplayVerifier) VerifyAll(ctx context.Context) (*VerificationReport, error) {
	var runs []*domain.RunRecord
	for _, kind := range domain.RunKinds() {
		byKind, err := v.runStore.GetByKind(ctx, kind)
		if err != nil {
			return nil, err
		}
		runs = append(runs, byKind...)
	}

	report := &VerificationReport{
		TotalRuns: len(runs),
		Results:   make([]VerificationResult, 0, len(runs)),
	}

	for _, run := range runs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := v.verify(ctx, run)
		if err != nil {
			report.Results = append(report.Results, VerificationResult{
				RunID: run.RunID,
				Kind:  run.Kind,
				Divergences: []FieldDivergence{
					{Field: "Error", Expected: nil, Actual: err.Error()},
				},
			})
			report.DivergentRuns++
			continue
		}

		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedRuns++
		} else {
			report.DivergentRuns++
		}
	}

	return report, nil
}

func (v *ReplayVerifier) verify(ctx context.Context, stored *domain.RunRecord) (*VerificationResult, error) {
	replayed, err := v.replayer.Replay(ctx, stored)
	if err != nil {
		return nil, err
	}

	divergences := CompareRunRecords(stored, replayed)
	return &VerificationResult{
		RunID:       stored.RunID,
		Kind:        stored.Kind,
		Match:       len(divergences) == 0,
		Divergences: divergences,
	}, nil
}
