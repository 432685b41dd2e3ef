package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/storage"
)

func TestRunStore_InsertCopiesPayload(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	params := json.RawMessage(`{"n":10}`)
	run := &domain.RunRecord{RunID: "r1", Kind: domain.RunKindBachelier, Seed: 9, Params: params}
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("insert: %v", err)
	}
	params[2] = 'x'

	got, err := store.GetByID(ctx, "r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got.Params) != `{"n":10}` {
		t.Errorf("stored params mutated through caller slice: %s", got.Params)
	}
}

func TestRunStore_Errors(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	if err := store.Insert(ctx, &domain.RunRecord{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	run := &domain.RunRecord{RunID: "r1", Kind: domain.RunKindOption}
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.Insert(ctx, run); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
	if _, err := store.GetByID(ctx, "r2"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRunStore_Ordering(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	for _, r := range []*domain.RunRecord{
		{RunID: "b", Kind: domain.RunKindDiffusion, CreatedAtMs: 2},
		{RunID: "a", Kind: domain.RunKindDiffusion, CreatedAtMs: 2},
		{RunID: "c", Kind: domain.RunKindDiffusion, CreatedAtMs: 1},
		{RunID: "d", Kind: domain.RunKindPortfolio, CreatedAtMs: 3},
	} {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	byKind, _ := store.GetByKind(ctx, domain.RunKindDiffusion)
	var ids []string
	for _, r := range byKind {
		ids = append(ids, r.RunID)
	}
	if len(ids) != 3 || ids[0] != "c" || ids[1] != "a" || ids[2] != "b" {
		t.Errorf("unexpected kind order: %v", ids)
	}

	recent, _ := store.GetRecent(ctx, 2)
	if len(recent) != 2 || recent[0].RunID != "d" || recent[1].RunID != "a" {
		t.Errorf("unexpected recent order: %+v", recent)
	}
}

func TestBandStore_AtomicBatch(t *testing.T) {
	store := NewBandStore()
	ctx := context.Background()

	first := []*domain.EnsembleBand{
		{RunID: "r", StepIndex: 1, Mean: 1},
		{RunID: "r", StepIndex: 0, Mean: 0},
	}
	if err := store.InsertBulk(ctx, first); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// One new row plus one existing: nothing is written
	mixed := []*domain.EnsembleBand{
		{RunID: "r", StepIndex: 2},
		{RunID: "r", StepIndex: 1},
	}
	if err := store.InsertBulk(ctx, mixed); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	got, _ := store.GetByRunID(ctx, "r")
	if len(got) != 2 {
		t.Fatalf("expected 2 bands after rejected batch, got %d", len(got))
	}
	if got[0].StepIndex != 0 || got[1].StepIndex != 1 {
		t.Errorf("bands not ordered by step: %+v", got)
	}

	intra := []*domain.EnsembleBand{{RunID: "s", StepIndex: 0}, {RunID: "s", StepIndex: 0}}
	if err := store.InsertBulk(ctx, intra); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected intra-batch duplicate error, got %v", err)
	}
}

func TestFrontierStore_Ordering(t *testing.T) {
	store := NewFrontierStore()
	ctx := context.Background()

	rows := []*domain.FrontierRow{
		{RunID: "p", Series: domain.SeriesFrontier, PointIndex: 1},
		{RunID: "p", Series: domain.SeriesCML, PointIndex: 0},
		{RunID: "p", Series: domain.SeriesFrontier, PointIndex: 0},
		{RunID: "q", Series: domain.SeriesFrontier, PointIndex: 0},
	}
	if err := store.InsertBulk(ctx, rows); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, _ := store.GetByRunID(ctx, "p")
	if len(got) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(got))
	}
	if got[0].Series != domain.SeriesCML || got[1].PointIndex != 0 || got[2].PointIndex != 1 {
		t.Errorf("unexpected order: %+v %+v %+v", got[0], got[1], got[2])
	}

	if err := store.InsertBulk(ctx, rows[:1]); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
	if err := store.InsertBulk(ctx, []*domain.FrontierRow{{RunID: "p"}}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
