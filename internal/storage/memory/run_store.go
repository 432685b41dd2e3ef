package memory

import (
	"context"
	"sort"
	"sync"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/storage"
)

// RunStore is an in-memory implementation of storage.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RunRecord // keyed by run_id
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		data: make(map[string]*domain.RunRecord),
	}
}

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(_ context.Context, r *domain.RunRecord) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.RunID] = cloneRun(r)
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(_ context.Context, runID string) (*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneRun(r), nil
}

// GetByKind retrieves all runs of a kind, ordered by created_at ASC, run_id ASC.
func (s *RunStore) GetByKind(_ context.Context, kind domain.RunKind) ([]*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RunRecord
	for _, r := range s.data {
		if r.Kind == kind {
			result = append(result, cloneRun(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAtMs != result[j].CreatedAtMs {
			return result[i].CreatedAtMs < result[j].CreatedAtMs
		}
		return result[i].RunID < result[j].RunID
	})
	return result, nil
}

// GetRecent retrieves up to limit runs, newest first.
func (s *RunStore) GetRecent(_ context.Context, limit int) ([]*domain.RunRecord, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.RunRecord, 0, len(s.data))
	for _, r := range s.data {
		result = append(result, cloneRun(r))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAtMs != result[j].CreatedAtMs {
			return result[i].CreatedAtMs > result[j].CreatedAtMs
		}
		return result[i].RunID < result[j].RunID
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// cloneRun copies the record including its JSON payloads.
func cloneRun(r *domain.RunRecord) *domain.RunRecord {
	c := *r
	c.Params = append([]byte(nil), r.Params...)
	c.Summary = append([]byte(nil), r.Summary...)
	return &c
}

var _ storage.RunStore = (*RunStore)(nil)
