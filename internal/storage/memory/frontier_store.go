package memory

import (
	"context"
	"sort"
	"sync"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/storage"
)

type frontierKey struct {
	runID      string
	series     string
	pointIndex int
}

// FrontierStore is an in-memory implementation of storage.FrontierStore.
type FrontierStore struct {
	mu   sync.RWMutex
	data map[frontierKey]*domain.FrontierRow
}

// NewFrontierStore creates a new in-memory frontier store.
func NewFrontierStore() *FrontierStore {
	return &FrontierStore{
		data: make(map[frontierKey]*domain.FrontierRow),
	}
}

// InsertBulk adds multiple rows. Fails entire batch on duplicate (run_id, series, point_index).
func (s *FrontierStore) InsertBulk(_ context.Context, rows []*domain.FrontierRow) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[frontierKey]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.RunID == "" || r.Series == "" {
			return storage.ErrInvalidInput
		}
		k := frontierKey{r.RunID, r.Series, r.PointIndex}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, r := range rows {
		copy := *r
		s.data[frontierKey{r.RunID, r.Series, r.PointIndex}] = &copy
	}
	return nil
}

// GetByRunID retrieves all rows for a run, ordered by series ASC, point_index ASC.
func (s *FrontierStore) GetByRunID(_ context.Context, runID string) ([]*domain.FrontierRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FrontierRow
	for k, r := range s.data {
		if k.runID == runID {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Series != result[j].Series {
			return result[i].Series < result[j].Series
		}
		return result[i].PointIndex < result[j].PointIndex
	})
	return result, nil
}

var _ storage.FrontierStore = (*FrontierStore)(nil)
