package postgres

import (
	"context"
	"fmt"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

const runColumns = `run_id, kind, seed::text, params, summary, duration_ms, created_at_ms`

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.RunRecord) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO simulation_runs (
			run_id, kind, seed, params, summary, duration_ms, created_at_ms
		) VALUES ($1, $2, $3::numeric, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RunID, string(r.Kind), encodeSeed(r.Seed),
		jsonOrNull(r.Params), jsonOrNull(r.Summary),
		r.DurationMs, r.CreatedAtMs,
	)
	return classify("insert run", err)
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM simulation_runs WHERE run_id = $1`

	r, err := scanRun(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		return nil, classify("get run", err)
	}
	return r, nil
}

// GetByKind retrieves all runs of a kind, ordered by created_at ASC, run_id ASC.
func (s *RunStore) GetByKind(ctx context.Context, kind domain.RunKind) ([]*domain.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM simulation_runs
		WHERE kind = $1
		ORDER BY created_at_ms ASC, run_id ASC`

	return s.queryRuns(ctx, query, string(kind))
}

// GetRecent retrieves up to limit runs, newest first.
func (s *RunStore) GetRecent(ctx context.Context, limit int) ([]*domain.RunRecord, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `SELECT ` + runColumns + ` FROM simulation_runs
		ORDER BY created_at_ms DESC, run_id ASC
		LIMIT $1`

	return s.queryRuns(ctx, query, limit)
}

func (s *RunStore) queryRuns(ctx context.Context, query string, args ...any) ([]*domain.RunRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("query runs", err)
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

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.RunRecord, error) {
	var r domain.RunRecord
	var kind, seed string
	var params, summary []byte

	err := row.Scan(&r.RunID, &kind, &seed, &params, &summary, &r.DurationMs, &r.CreatedAtMs)
	if err != nil {
		return nil, err
	}

	r.Kind = domain.RunKind(kind)
	r.Seed, err = decodeSeed(seed)
	if err != nil {
		return nil, err
	}
	r.Params = params
	r.Summary = summary
	return &r, nil
}

// jsonOrNull returns a JSON document for a JSONB NOT NULL column.
func jsonOrNull(raw []byte) string {
	if len(raw) == 0 {
		return "null"
	}
	return string(raw)
}
