package clickhouse

import (
	"context"
	"fmt"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/storage"
)

// FrontierStore implements storage.FrontierStore using ClickHouse.
type FrontierStore struct {
	conn *Conn
}

// NewFrontierStore creates a new FrontierStore.
func NewFrontierStore(conn *Conn) *FrontierStore {
	return &FrontierStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FrontierStore = (*FrontierStore)(nil)

// InsertBulk adds multiple rows atomically. Fails entire batch on any duplicate.
func (s *FrontierStore) InsertBulk(ctx context.Context, rows []*domain.FrontierRow) error {
	if len(rows) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.RunID == "" || r.Series == "" {
			return storage.ErrInvalidInput
		}
		k := rowKey(r.RunID, r.Series, r.PointIndex)
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	existing := make(map[string]map[string]struct{})
	for _, r := range rows {
		keys, ok := existing[r.RunID]
		if !ok {
			var err error
			keys, err = s.existingKeys(ctx, r.RunID)
			if err != nil {
				return fmt.Errorf("check exists: %w", err)
			}
			existing[r.RunID] = keys
		}
		if _, dup := keys[rowKey(r.RunID, r.Series, r.PointIndex)]; dup {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO frontier_points (
			run_id, series, point_index, volatility, expected_return
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		if err := batch.Append(r.RunID, r.Series, int32(r.PointIndex), r.Volatility, r.Return); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRunID retrieves all rows for a run, ordered by series ASC, point_index ASC.
func (s *FrontierStore) GetByRunID(ctx context.Context, runID string) ([]*domain.FrontierRow, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT run_id, series, point_index, volatility, expected_return
		FROM frontier_points FINAL
		WHERE run_id = ?
		ORDER BY series ASC, point_index ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query frontier: %w", err)
	}
	defer rows.Close()

	return scanFrontierRows(rows)
}

func (s *FrontierStore) existingKeys(ctx context.Context, runID string) (map[string]struct{}, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT series, point_index FROM frontier_points WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var series string
		var idx int32
		if err := rows.Scan(&series, &idx); err != nil {
			return nil, err
		}
		keys[rowKey(runID, series, int(idx))] = struct{}{}
	}
	return keys, rows.Err()
}

func rowKey(runID, series string, idx int) string {
	return fmt.Sprintf("%s|%s|%d", runID, series, idx)
}

func scanFrontierRows(rows chRows) ([]*domain.FrontierRow, error) {
	var result []*domain.FrontierRow
	for rows.Next() {
		var r domain.FrontierRow
		var idx int32
		if err := rows.Scan(&r.RunID, &r.Series, &idx, &r.Volatility, &r.Return); err != nil {
			return nil, fmt.Errorf("scan frontier row: %w", err)
		}
		r.PointIndex = int(idx)
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frontier rows: %w", err)
	}
	return result, nil
}
