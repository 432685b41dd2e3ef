package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/storage"
)

func testBands(runID string, n int) []*domain.EnsembleBand {
	bands := make([]*domain.EnsembleBand, n)
	for i := range bands {
		bands[i] = &domain.EnsembleBand{
			RunID:      runID,
			StepIndex:  i,
			Time:       float64(i) * 0.01,
			Mean:       100,
			StdDev:     float64(i) * 0.2,
			P05:        100 - float64(i)*0.33,
			P50:        100,
			P95:        100 + float64(i)*0.33,
			TheoryMean: 100,
			TheoryStd:  float64(i) * 0.2,
		}
	}
	return bands
}

func TestBandStore_InsertBulkAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBandStore(conn)
	ctx := context.Background()

	bands := testBands("run-a", 5)
	// Insert out of order to exercise ORDER BY
	bands[0], bands[4] = bands[4], bands[0]
	require.NoError(t, store.InsertBulk(ctx, bands))

	got, err := store.GetByRunID(ctx, "run-a")
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i, b := range got {
		assert.Equal(t, i, b.StepIndex)
		assert.Equal(t, "run-a", b.RunID)
	}
	assert.InDelta(t, 0.8, got[4].StdDev, 1e-12)
}

func TestBandStore_DuplicateExisting(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBandStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, testBands("run-b", 3)))

	err := store.InsertBulk(ctx, testBands("run-b", 1))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByRunID(ctx, "run-b")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestBandStore_DuplicateInBatch(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBandStore(conn)
	ctx := context.Background()

	bands := testBands("run-c", 2)
	bands = append(bands, bands[0])
	err := store.InsertBulk(ctx, bands)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByRunID(ctx, "run-c")
	require.NoError(t, err)
	assert.Empty(t, got)
}
