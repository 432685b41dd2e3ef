package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/storage"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testRun(id string, kind domain.RunKind, createdAt int64) *domain.RunRecord {
	return &domain.RunRecord{
		RunID:       id,
		Kind:        kind,
		Seed:        math.MaxUint64,
		Params:      json.RawMessage(`{"n":200}`),
		Summary:     json.RawMessage(`{"mean":100}`),
		DurationMs:  7,
		CreatedAtMs: createdAt,
	}
}

func TestRunStore_RoundTrip(t *testing.T) {
	store := NewRunStore(openTestDB(t))
	ctx := context.Background()

	run := testRun("r1", domain.RunKindRegime, 5)
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := store.GetByID(ctx, "r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Seed != math.MaxUint64 {
		t.Errorf("seed lost precision: %d", got.Seed)
	}
	if got.Kind != domain.RunKindRegime {
		t.Errorf("kind = %q", got.Kind)
	}
	if string(got.Params) != `{"n":200}` {
		t.Errorf("params = %s", got.Params)
	}
}

func TestRunStore_DuplicateAndMissing(t *testing.T) {
	store := NewRunStore(openTestDB(t))
	ctx := context.Background()

	run := testRun("dup", domain.RunKindOption, 1)
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.Insert(ctx, run); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
	if _, err := store.GetByID(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRunStore_Ordering(t *testing.T) {
	store := NewRunStore(openTestDB(t))
	ctx := context.Background()

	for _, r := range []*domain.RunRecord{
		testRun("b", domain.RunKindFractional, 20),
		testRun("a", domain.RunKindFractional, 20),
		testRun("c", domain.RunKindFractional, 10),
		testRun("z", domain.RunKindOption, 30),
	} {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("insert %s: %v", r.RunID, err)
		}
	}

	byKind, err := store.GetByKind(ctx, domain.RunKindFractional)
	if err != nil {
		t.Fatalf("by kind: %v", err)
	}
	want := []string{"c", "a", "b"}
	if len(byKind) != len(want) {
		t.Fatalf("expected %d runs, got %d", len(want), len(byKind))
	}
	for i, id := range want {
		if byKind[i].RunID != id {
			t.Errorf("byKind[%d] = %s, want %s", i, byKind[i].RunID, id)
		}
	}

	recent, err := store.GetRecent(ctx, 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 1 || recent[0].RunID != "z" {
		t.Errorf("unexpected recent: %+v", recent)
	}

	if _, err := store.GetRecent(ctx, 0); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for zero limit, got %v", err)
	}
}
