package runstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/analysis/correlation"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCreateFinishGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := uuid.NewString()

	require.NoError(t, store.Create(ctx, Record{
		ID:          id,
		Mode:        "auto",
		Timeframe:   "1h",
		TargetCount: 2,
		Symbols:     []string{"BTCUSDT", "ETHUSDT"},
	}))

	created, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, RunStatusRunning, created.Status)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, created.Symbols)

	matrix := correlation.Matrix{
		Symbols: []string{"BTCUSDT", "ETHUSDT"},
		Values:  [][]float64{{1, 0.87}, {0.87, 1}},
	}
	require.NoError(t, store.Finish(ctx, Record{
		ID:        id,
		Status:    RunStatusSucceeded,
		Successes: []string{"BTCUSDT", "ETHUSDT"},
		Failures:  []string{},
		Matrix:    matrix,
		Rows:      168,
		Cols:      2,
		SpanStart: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		SpanEnd:   time.Date(2025, 3, 7, 23, 0, 0, 0, time.UTC),
		Duration:  3 * time.Second,
	}))

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, RunStatusSucceeded, got.Status)
	assert.Equal(t, 168, got.Rows)
	assert.Equal(t, matrix.Symbols, got.Matrix.Symbols)
	assert.InDelta(t, 0.87, got.Matrix.At(0, 1), 1e-9)
	assert.EqualValues(t, 3000, got.DurationMS)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), got.SpanStart)
}

func TestGetMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFinishMissing(t *testing.T) {
	store := newTestStore(t)
	err := store.Finish(context.Background(), Record{ID: "nope", Status: RunStatusFailed})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := Record{ID: "run-a", CreatedAt: time.Now().Add(-time.Hour)}
	newer := Record{ID: "run-b", CreatedAt: time.Now()}
	require.NoError(t, store.Create(ctx, older))
	require.NoError(t, store.Create(ctx, newer))

	recs, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "run-b", recs[0].ID)
	assert.Equal(t, "run-a", recs[1].ID)

	recs, err = store.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "run-b", recs[0].ID)
}
