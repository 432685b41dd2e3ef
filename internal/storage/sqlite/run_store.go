package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/storage"
)

// RunStore implements storage.RunStore on SQLite.
type RunStore struct {
	db *DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

var _ storage.RunStore = (*RunStore)(nil)

const runColumns = `run_id, kind, seed, params, summary, duration_ms, created_at_ms`

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.RunRecord) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO simulation_runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, string(r.Kind), strconv.FormatUint(r.Seed, 10),
		string(r.Params), string(r.Summary), r.DurationMs, r.CreatedAtMs,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM simulation_runs WHERE run_id = ?`, runID)

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// GetByKind retrieves all runs of a kind, ordered by created_at ASC, run_id ASC.
func (s *RunStore) GetByKind(ctx context.Context, kind domain.RunKind) ([]*domain.RunRecord, error) {
	return s.queryRuns(ctx,
		`SELECT `+runColumns+` FROM simulation_runs WHERE kind = ? ORDER BY created_at_ms ASC, run_id ASC`,
		string(kind))
}

// GetRecent retrieves up to limit runs, newest first.
func (s *RunStore) GetRecent(ctx context.Context, limit int) ([]*domain.RunRecord, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}
	return s.queryRuns(ctx,
		`SELECT `+runColumns+` FROM simulation_runs ORDER BY created_at_ms DESC, run_id ASC LIMIT ?`,
		limit)
}

func (s *RunStore) queryRuns(ctx context.Context, query string, args ...any) ([]*domain.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var result []*domain.RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.RunRecord, error) {
	var r domain.RunRecord
	var kind, seed, params, summary string
	if err := row.Scan(&r.RunID, &kind, &seed, &params, &summary, &r.DurationMs, &r.CreatedAtMs); err != nil {
		return nil, err
	}

	var err error
	r.Kind = domain.RunKind(kind)
	r.Seed, err = strconv.ParseUint(seed, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse seed %q: %w", seed, err)
	}
	r.Params = []byte(params)
	r.Summary = []byte(summary)
	return &r, nil
}
