package clickhouse

import (
	"context"
	"fmt"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/storage"
)

// BandStore implements storage.BandStore using ClickHouse.
type BandStore struct {
	conn *Conn
}

// NewBandStore creates a new BandStore.
func NewBandStore(conn *Conn) *BandStore {
	return &BandStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BandStore = (*BandStore)(nil)

// InsertBulk adds multiple bands atomically. Fails entire batch on any duplicate.
func (s *BandStore) InsertBulk(ctx context.Context, bands []*domain.EnsembleBand) error {
	if len(bands) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		runID string
		step  int
	}
	seen := make(map[key]struct{}, len(bands))
	runIDs := make(map[string]struct{})
	for _, b := range bands {
		if b == nil || b.RunID == "" {
			return storage.ErrInvalidInput
		}
		k := key{b.RunID, b.StepIndex}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		runIDs[b.RunID] = struct{}{}
	}

	// Check against existing rows; ReplacingMergeTree would silently merge them
	for runID := range runIDs {
		existing, err := s.existingSteps(ctx, runID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		for _, b := range bands {
			if b.RunID != runID {
				continue
			}
			if _, ok := existing[b.StepIndex]; ok {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO ensemble_bands (
			run_id, step_index, time,
			mean, stddev, p05, p50, p95,
			theory_mean, theory_std
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bands {
		err = batch.Append(
			b.RunID, int32(b.StepIndex), b.Time,
			b.Mean, b.StdDev, b.P05, b.P50, b.P95,
			b.TheoryMean, b.TheoryStd,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRunID retrieves all bands for a run, ordered by step_index ASC.
func (s *BandStore) GetByRunID(ctx context.Context, runID string) ([]*domain.EnsembleBand, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT
			run_id, step_index, time,
			mean, stddev, p05, p50, p95,
			theory_mean, theory_std
		FROM ensemble_bands FINAL
		WHERE run_id = ?
		ORDER BY step_index ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query bands: %w", err)
	}
	defer rows.Close()

	return scanBands(rows)
}

func (s *BandStore) existingSteps(ctx context.Context, runID string) (map[int]struct{}, error) {
	rows, err := s.conn.Query(ctx, `SELECT step_index FROM ensemble_bands WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	steps := make(map[int]struct{})
	for rows.Next() {
		var step int32
		if err := rows.Scan(&step); err != nil {
			return nil, err
		}
		steps[int(step)] = struct{}{}
	}
	return steps, rows.Err()
}

func scanBands(rows chRows) ([]*domain.EnsembleBand, error) {
	var result []*domain.EnsembleBand
	for rows.Next() {
		var b domain.EnsembleBand
		var step int32
		err := rows.Scan(
			&b.RunID, &step, &b.Time,
			&b.Mean, &b.StdDev, &b.P05, &b.P50, &b.P95,
			&b.TheoryMean, &b.TheoryStd,
		)
		if err != nil {
			return nil, fmt.Errorf("scan band: %w", err)
		}
		b.StepIndex = int(step)
		result = append(result, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bands: %w", err)
	}
	return result, nil
}
