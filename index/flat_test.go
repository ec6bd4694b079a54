package index

import (
	"context"
	"math"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/nerdgo/embedding"
	"github.com/hupe1980/nerdgo/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustStore(t *testing.T, dim int, rows [][]float32) *embedding.Store {
	t.Helper()
	s, err := embedding.FromRows(dim, rows)
	require.NoError(t, err)
	return s
}

func TestFlat_TwoEntities(t *testing.T) {
	idx := Build(mustStore(t, 2, [][]float32{{1, 0}, {0, 1}}))

	got, err := idx.Search(context.Background(), []float32{0.9, 0.1}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint32(0), got[0].ID)
	assert.InDelta(t, 0.9, got[0].Score, 1e-6)
}

func TestFlat_KLargerThanCount(t *testing.T) {
	idx := Build(mustStore(t, 2, [][]float32{{1, 0}, {0, 1}}))

	got, err := idx.Search(context.Background(), []float32{0.9, 0.1}, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1}, ids(got))
}

func TestFlat_TiesByAscendingID(t *testing.T) {
	idx := Build(mustStore(t, 2, [][]float32{{0, 1}, {1, 0}, {0, 1}, {1, 0}}))

	got, err := idx.Search(context.Background(), []float32{1, 1}, 4)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2, 3}, ids(got))
}

func TestFlat_NaNRanksLast(t *testing.T) {
	nan := float32(math.NaN())
	idx := Build(mustStore(t, 1, [][]float32{{nan}, {-1}, {2}, {nan}}))

	got, err := idx.Search(context.Background(), []float32{1}, 4)
	require.NoError(t, err)
	assert.Equal(t, []uint32{2, 1, 0, 3}, ids(got))
}

func TestFlat_Errors(t *testing.T) {
	idx := Build(mustStore(t, 2, [][]float32{{1, 0}}))

	_, err := idx.Search(context.Background(), []float32{1, 0}, 0)
	require.ErrorIs(t, err, ErrInvalidK)

	_, err = idx.Search(context.Background(), []float32{1, 0, 0}, 1)
	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 2, dm.Expected)
	assert.Equal(t, 3, dm.Actual)
}

func TestFlat_Empty(t *testing.T) {
	empty, err := embedding.New(4)
	require.NoError(t, err)

	got, err := Build(empty).Search(context.Background(), make([]float32, 4), 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFlat_MatchesExactScan(t *testing.T) {
	rng := testutil.NewRNG(1)
	rows := rng.UnitVectors(500, 16)
	idx := Build(mustStore(t, 16, rows))

	for range 10 {
		q := rng.UnitVector(16)
		got, err := idx.Search(context.Background(), q, 10)
		require.NoError(t, err)

		want := testutil.ExactTopK(rows, q, 10)
		require.Len(t, got, len(want))
		for i := range want {
			assert.Equal(t, want[i].ID, got[i].ID)
			assert.Equal(t, want[i].Score, got[i].Score)
		}
	}
}

func TestFlat_Determinism(t *testing.T) {
	rng := testutil.NewRNG(2)
	store := mustStore(t, 32, rng.UnitVectors(1000, 32))
	q := rng.UnitVector(32)
	ctx := context.Background()

	seq := Build(store)
	par := Build(store, WithParallelism(4), WithShardSize(64))

	first, err := seq.Search(ctx, q, 20)
	require.NoError(t, err)
	for range 5 {
		again, err := seq.Search(ctx, q, 20)
		require.NoError(t, err)
		assert.Equal(t, first, again)

		parallel, err := par.Search(ctx, q, 20)
		require.NoError(t, err)
		assert.Equal(t, first, parallel)
	}
}

func TestFlat_PrefixMonotonic(t *testing.T) {
	rng := testutil.NewRNG(3)
	idx := Build(mustStore(t, 8, rng.UnitVectors(200, 8)), WithShardSize(17))
	q := rng.UnitVector(8)

	full, err := idx.Search(context.Background(), q, 50)
	require.NoError(t, err)
	for k := 1; k <= 50; k += 7 {
		got, err := idx.Search(context.Background(), q, k)
		require.NoError(t, err)
		assert.Equal(t, full[:k], got)
	}
}

func TestFlat_Filter(t *testing.T) {
	idx := Build(mustStore(t, 1, [][]float32{{5}, {4}, {3}, {2}, {1}}))

	got, err := idx.Search(context.Background(), []float32{1}, 2, WithFilter(roaring.BitmapOf(1, 3, 4, 99)))
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 3}, ids(got))

	got, err = idx.Search(context.Background(), []float32{1}, 2, WithFilter(roaring.New()))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFlat_ContextCanceled(t *testing.T) {
	idx := Build(mustStore(t, 1, [][]float32{{1}, {2}}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := idx.Search(ctx, []float32{1}, 1)
	require.ErrorIs(t, err, context.Canceled)
}

func ids(cs []Candidate) []uint32 {
	out := make([]uint32, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}
