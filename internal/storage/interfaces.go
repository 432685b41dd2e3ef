package storage

import (
	"context"

	"diffusion-lab/internal/domain"
)

// RunStore provides access to runs storage.
type RunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.RunRecord) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.RunRecord, error)

	// GetByKind retrieves all runs of a kind, ordered by created_at ASC, run_id ASC.
	GetByKind(ctx context.Context, kind domain.RunKind) ([]*domain.RunRecord, error)

	// GetRecent retrieves up to limit runs, newest first.
	GetRecent(ctx context.Context, limit int) ([]*domain.RunRecord, error)
}

// BandStore provides access to ensemble_bands storage.
type BandStore interface {
	// InsertBulk adds multiple bands. Fails entire batch on duplicate (run_id, step_index).
	InsertBulk(ctx context.Context, bands []*domain.EnsembleBand) error

	// GetByRunID retrieves all bands for a run, ordered by step_index ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.EnsembleBand, error)
}

// FrontierStore provides access to frontier_points storage.
type FrontierStore interface {
	// InsertBulk adds multiple rows. Fails entire batch on duplicate (run_id, series, point_index).
	InsertBulk(ctx context.Context, rows []*domain.FrontierRow) error

	// GetByRunID retrieves all rows for a run, ordered by series ASC, point_index ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.FrontierRow, error)
}
