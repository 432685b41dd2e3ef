package backend

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"path/filepath"
	"testing"

	"diffusion-lab/internal/config"
	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/storage/memory"
	"diffusion-lab/internal/storage/sqlite"
)

var quiet = log.New(io.Discard, "", 0)

func TestOpen_Memory(t *testing.T) {
	stores, cleanup, err := Open(context.Background(), config.Config{UseMemory: true}, quiet)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer cleanup()

	if _, ok := stores.Runs.(*memory.RunStore); !ok {
		t.Errorf("runs = %T, want *memory.RunStore", stores.Runs)
	}
	if _, ok := stores.Bands.(*memory.BandStore); !ok {
		t.Errorf("bands = %T, want *memory.BandStore", stores.Bands)
	}
	if _, ok := stores.Frontiers.(*memory.FrontierStore); !ok {
		t.Errorf("frontiers = %T, want *memory.FrontierStore", stores.Frontiers)
	}
	if stores.RunBackend != config.BackendMemory || stores.AnalyticsBackend != config.BackendMemory {
		t.Errorf("backends = %s/%s", stores.RunBackend, stores.AnalyticsBackend)
	}
}

func TestOpen_None(t *testing.T) {
	stores, cleanup, err := Open(context.Background(), config.Config{}, quiet)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer cleanup()

	if stores.Runs != nil || stores.Bands != nil || stores.Frontiers != nil {
		t.Errorf("expected no stores, got %+v", stores)
	}
}

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lab.db")

	stores, cleanup, err := Open(ctx, config.Config{SQLitePath: path}, quiet)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := stores.Runs.(*sqlite.RunStore); !ok {
		t.Fatalf("runs = %T, want *sqlite.RunStore", stores.Runs)
	}
	if stores.Bands != nil {
		t.Errorf("expected no band store without ClickHouse")
	}

	run := &domain.RunRecord{
		RunID:   "r1",
		Kind:    domain.RunKindOption,
		Params:  json.RawMessage(`{}`),
		Summary: json.RawMessage(`{}`),
	}
	if err := stores.Runs.Insert(ctx, run); err != nil {
		t.Fatalf("insert: %v", err)
	}
	cleanup()

	// reopening applies migrations again and keeps the data
	stores, cleanup, err = Open(ctx, config.Config{SQLitePath: path}, quiet)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer cleanup()
	if _, err := stores.Runs.GetByID(ctx, "r1"); err != nil {
		t.Errorf("run lost across reopen: %v", err)
	}
}
