package memory

import (
	"context"
	"sort"
	"sync"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/storage"
)

type bandKey struct {
	runID     string
	stepIndex int
}

// BandStore is an in-memory implementation of storage.BandStore.
type BandStore struct {
	mu   sync.RWMutex
	data map[bandKey]*domain.EnsembleBand
}

// NewBandStore creates a new in-memory band store.
func NewBandStore() *BandStore {
	return &BandStore{
		data: make(map[bandKey]*domain.EnsembleBand),
	}
}

// InsertBulk adds multiple bands. Fails entire batch on duplicate (run_id, step_index).
func (s *BandStore) InsertBulk(_ context.Context, bands []*domain.EnsembleBand) error {
	if len(bands) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: check for duplicates (existing + intra-batch)
	batchKeys := make(map[bandKey]struct{}, len(bands))
	for _, b := range bands {
		if b == nil || b.RunID == "" {
			return storage.ErrInvalidInput
		}
		k := bandKey{b.RunID, b.StepIndex}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	// Second pass: insert all
	for _, b := range bands {
		copy := *b
		s.data[bandKey{b.RunID, b.StepIndex}] = &copy
	}
	return nil
}

// GetByRunID retrieves all bands for a run, ordered by step_index ASC.
func (s *BandStore) GetByRunID(_ context.Context, runID string) ([]*domain.EnsembleBand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EnsembleBand
	for k, b := range s.data {
		if k.runID == runID {
			copy := *b
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StepIndex < result[j].StepIndex
	})
	return result, nil
}

var _ storage.BandStore = (*BandStore)(nil)
