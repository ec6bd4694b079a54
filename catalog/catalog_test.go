package catalog

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func partials(titles ...string) []Partial {
	out := make([]Partial, len(titles))
	for i, t := range titles {
		out[i] = Partial{Title: t, Description: t + " description"}
	}
	return out
}

func TestAppend_AssignsContiguousIDs(t *testing.T) {
	base := Append(New(), partials("A", "B"))
	require.Equal(t, 2, base.Len())

	merged := Append(base, partials("C", "D", "E"))
	require.Equal(t, 5, merged.Len())

	for i, want := range []string{"A", "B", "C", "D", "E"} {
		r, err := merged.Get(ID(i))
		require.NoError(t, err)
		assert.Equal(t, ID(i), r.ID)
		assert.Equal(t, want, r.Title)
	}

	// The source catalog is unchanged.
	assert.Equal(t, 2, base.Len())
	_, err := base.Get(2)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAppend_IDStability(t *testing.T) {
	base := Append(New(), partials("A", "B", "C"))
	before := slices.Collect(base.All())

	merged := Append(base, partials("D"))
	for _, r := range before {
		got, err := merged.Get(r.ID)
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
}

func TestAppend_Associative(t *testing.T) {
	base := Append(New(), partials("A", "B"))
	b, c := partials("C", "D"), partials("E")

	stepwise := Append(Append(base, b), c)
	oneShot := Append(base, append(slices.Clone(b), c...))

	assert.Equal(t, slices.Collect(stepwise.All()), slices.Collect(oneShot.All()))
}

func TestPartial_DefaultTypes(t *testing.T) {
	r := Partial{Title: "X"}.WithID(3)
	assert.NotNil(t, r.Types)
	assert.Empty(t, r.Types)
	assert.Empty(t, r.WikipediaPageID)
}

func TestFromRecords_IDGap(t *testing.T) {
	_, err := FromRecords([]Record{{ID: 0}, {ID: 2}})
	require.ErrorIs(t, err, ErrIDGap)

	c, err := FromRecords([]Record{{ID: 0}, {ID: 1}})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
}

func TestFilter(t *testing.T) {
	c := Append(New(), []Partial{
		{Title: "Paris", Types: []string{"city", "capital"}},
		{Title: "Seine", Types: []string{"river"}},
		{Title: "Berlin", Types: []string{"city"}},
		{Title: "Untyped"},
	})

	assert.Equal(t, []uint32{0, 2}, c.Filter("city").ToArray())
	assert.Equal(t, []uint32{0, 1, 2}, c.Filter("river", "city").ToArray())
	assert.True(t, c.Filter("mountain").IsEmpty())

	// Results are private copies.
	c.Filter("city").Add(3)
	assert.Equal(t, uint64(2), c.Filter("city").GetCardinality())

	assert.Equal(t, []string{"capital", "city", "river"}, c.TypeLabels())
	assert.Equal(t, uint64(2), c.TypeCounts()["city"])
	assert.True(t, mustGet(t, c, 0).HasType("capital"))
}

func mustGet(t *testing.T, c *Catalog, id ID) Record {
	t.Helper()
	r, err := c.Get(id)
	require.NoError(t, err)
	return r
}
