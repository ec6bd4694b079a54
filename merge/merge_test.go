package merge

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/nerdgo/catalog"
	"github.com/hupe1980/nerdgo/embedding"
	"github.com/hupe1980/nerdgo/testutil"
)

func makeBatch(t *testing.T, rng *testutil.RNG, dim int, titles ...string) *Batch {
	t.Helper()
	b := NewBatch(dim)
	for _, title := range titles {
		require.NoError(t, b.Add(rng.UnitVector(dim), catalog.Partial{Title: title, Description: title + " text"}))
	}
	return b
}

func emptyBase(t *testing.T, dim int) (*embedding.Store, *catalog.Catalog) {
	t.Helper()
	s, err := embedding.New(dim)
	require.NoError(t, err)
	return s, catalog.New()
}

func TestMerge_AssignsContiguousIDs(t *testing.T) {
	rng := testutil.NewRNG(1)
	store, cat := emptyBase(t, 4)

	first, err := Merge(store, cat, makeBatch(t, rng, 4, "A", "B"))
	require.NoError(t, err)
	assert.Equal(t, 0, first.Offset)
	assert.Equal(t, 2, first.Added)

	second := makeBatch(t, rng, 4, "C", "D", "E")
	res, err := Merge(first.Store, first.Catalog, second)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Offset)
	assert.Equal(t, 5, res.Store.Count())
	assert.Equal(t, 5, res.Catalog.Len())

	for i, e := range second.Entries {
		id := uint32(2 + i)
		row, err := res.Store.Row(id)
		require.NoError(t, err)
		assert.Equal(t, e.Vector, row)

		rec, err := res.Catalog.Get(id)
		require.NoError(t, err)
		assert.Equal(t, e.Entity.Title, rec.Title)
		assert.Equal(t, id, rec.ID)
	}
}

func TestMerge_KeepsExistingIDs(t *testing.T) {
	rng := testutil.NewRNG(2)
	store, cat := emptyBase(t, 3)
	base, err := Merge(store, cat, makeBatch(t, rng, 3, "A", "B", "C"))
	require.NoError(t, err)

	res, err := Merge(base.Store, base.Catalog, makeBatch(t, rng, 3, "D"))
	require.NoError(t, err)

	for id := range uint32(3) {
		before, _ := base.Store.Row(id)
		after, _ := res.Store.Row(id)
		assert.Equal(t, before, after)

		rb, _ := base.Catalog.Get(id)
		ra, _ := res.Catalog.Get(id)
		assert.Equal(t, rb, ra)
	}
	// Inputs are untouched.
	assert.Equal(t, 3, base.Store.Count())
	assert.Equal(t, 3, base.Catalog.Len())
}

func TestMerge_Associative(t *testing.T) {
	rng := testutil.NewRNG(3)
	store, cat := emptyBase(t, 4)
	b := makeBatch(t, rng, 4, "B1", "B2")
	c := makeBatch(t, rng, 4, "C1", "C2", "C3")

	step1, err := Merge(store, cat, b)
	require.NoError(t, err)
	stepwise, err := Merge(step1.Store, step1.Catalog, c)
	require.NoError(t, err)

	combined := NewBatch(4)
	require.NoError(t, combined.Append(b))
	require.NoError(t, combined.Append(c))
	oneShot, err := Merge(store, cat, combined)
	require.NoError(t, err)

	assert.Equal(t, stepwise.Store.Flat(), oneShot.Store.Flat())
	assert.Equal(t, slices.Collect(stepwise.Catalog.All()), slices.Collect(oneShot.Catalog.All()))
}

func TestMerge_EmptyBatch(t *testing.T) {
	store, cat := emptyBase(t, 4)
	res, err := Merge(store, cat, NewBatch(4))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Store.Count())
	assert.Equal(t, 0, res.Added)
}

func TestMerge_DimensionMismatch(t *testing.T) {
	rng := testutil.NewRNG(4)
	store, cat := emptyBase(t, 4)

	_, err := Merge(store, cat, makeBatch(t, rng, 3, "A"))
	var dimErr *embedding.ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 4, dimErr.Expected)
	assert.Equal(t, 3, dimErr.Actual)

	// A malformed entry inside a well-declared batch is rejected too.
	bad := &Batch{Dim: 4, Entries: []Entry{{Vector: []float32{1, 2}}}}
	_, err = Merge(store, cat, bad)
	require.ErrorAs(t, err, &dimErr)
}

func TestMerge_PairingViolation(t *testing.T) {
	rng := testutil.NewRNG(5)
	store, err := embedding.FromRows(2, [][]float32{{1, 0}, {0, 1}})
	require.NoError(t, err)
	cat := catalog.Append(catalog.New(), []catalog.Partial{{Title: "only"}})

	_, err = Merge(store, cat, makeBatch(t, rng, 2, "A"))
	require.ErrorIs(t, err, ErrPairingViolation)
}

func TestBatch_Add(t *testing.T) {
	b := NewBatch(3)
	require.NoError(t, b.Add([]float32{1, 2, 3}, catalog.Partial{Title: "x"}))

	var dimErr *embedding.ErrDimensionMismatch
	require.ErrorAs(t, b.Add([]float32{1}, catalog.Partial{}), &dimErr)
	assert.Equal(t, 1, b.Len())

	require.ErrorAs(t, b.Append(NewBatch(2)), &dimErr)
}

const entitiesJSONL = `{"title":"Paris","text":"capital of France","types":["city"],"wikipedia_page_id":22989,"kb_idx":"Q90"}
{"title":"Paris Hilton","text":"American media personality","types":["person"],"wikipedia_page_id":null,"kb_idx":null}
`

func encodeVectors(t *testing.T, dim int, rows [][]float32) []byte {
	t.Helper()
	s, err := embedding.FromRows(dim, rows)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, embedding.Encode(&buf, s, embedding.LayoutRaw))
	return buf.Bytes()
}

func TestDecodeBatch(t *testing.T) {
	vectors := encodeVectors(t, 2, [][]float32{{1, 0}, {0, 1}})

	b, err := DecodeBatch(vectors, strings.NewReader(entitiesJSONL), 2)
	require.NoError(t, err)
	require.Equal(t, 2, b.Len())

	assert.Equal(t, []float32{1, 0}, b.Entries[0].Vector)
	assert.Equal(t, "Paris", b.Entries[0].Entity.Title)
	assert.Equal(t, "capital of France", b.Entries[0].Entity.Description)
	assert.Equal(t, "22989", b.Entries[0].Entity.WikipediaPageID)
	assert.Equal(t, "Q90", b.Entries[0].Entity.KBID)
	assert.Equal(t, []string{"person"}, b.Entries[1].Entity.Types)
	assert.Empty(t, b.Entries[1].Entity.WikipediaPageID)
}

func TestDecodeBatch_LengthMismatch(t *testing.T) {
	vectors := encodeVectors(t, 2, [][]float32{{1, 0}, {0, 1}, {1, 1}})

	_, err := DecodeBatch(vectors, strings.NewReader(entitiesJSONL), 2)
	require.ErrorIs(t, err, ErrBatchLength)
}

func TestReadBatch(t *testing.T) {
	dir := t.TempDir()
	vecPath := filepath.Join(dir, "vectors.f32")
	entPath := filepath.Join(dir, "entities.jsonl")

	require.NoError(t, os.WriteFile(vecPath, encodeVectors(t, 2, [][]float32{{1, 0}, {0, 1}}), 0o644))
	require.NoError(t, os.WriteFile(entPath, []byte(entitiesJSONL), 0o644))

	b, err := ReadBatch(vecPath, entPath, 2)
	require.NoError(t, err)
	require.Equal(t, 2, b.Len())
	assert.Equal(t, []float32{0, 1}, b.Entries[1].Vector)
	assert.Equal(t, "Paris Hilton", b.Entries[1].Entity.Title)

	_, err = ReadBatch(vecPath, filepath.Join(dir, "missing.jsonl"), 2)
	require.ErrorIs(t, err, os.ErrNotExist)
}
