package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRows(t *testing.T) {
	s, err := FromRows(2, [][]float32{{1, 0}, {0, 1}})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Count())
	assert.Equal(t, 2, s.Dim())
	assert.Equal(t, []float32{1, 0, 0, 1}, s.Flat())

	_, err = FromRows(2, [][]float32{{1, 0, 0}})
	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 2, dm.Expected)
	assert.Equal(t, 3, dm.Actual)

	_, err = New(0)
	require.ErrorIs(t, err, ErrInvalidDim)
}

func TestFromFlat(t *testing.T) {
	_, err := FromFlat(3, []float32{1, 2, 3, 4})
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
}

func TestRow(t *testing.T) {
	s, err := FromRows(2, [][]float32{{1, 2}, {3, 4}})
	require.NoError(t, err)

	row, err := s.Row(1)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4}, row)

	// Views must not let appends spill into the next row.
	row0, _ := s.Row(0)
	_ = append(row0, 99)
	row1, _ := s.Row(1)
	assert.Equal(t, float32(3), row1[0])

	_, err = s.Row(2)
	var ie *IndexError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, uint32(2), ie.ID)
	assert.Equal(t, 2, ie.Count)
}

func TestRows(t *testing.T) {
	s, err := FromRows(1, [][]float32{{10}, {11}, {12}})
	require.NoError(t, err)

	seq, err := s.Rows([]uint32{2, 0})
	require.NoError(t, err)

	var ids []uint32
	var vals []float32
	for id, v := range seq {
		ids = append(ids, id)
		vals = append(vals, v[0])
	}
	assert.Equal(t, []uint32{2, 0}, ids)
	assert.Equal(t, []float32{12, 10}, vals)

	// Validation happens before anything is yielded.
	_, err = s.Rows([]uint32{0, 3})
	var ie *IndexError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, uint32(3), ie.ID)
}

func TestConcat(t *testing.T) {
	a, _ := FromRows(2, [][]float32{{1, 0}, {0, 1}})
	b, _ := FromRows(2, [][]float32{{1, 1}, {2, 2}, {3, 3}})

	c, err := Concat(a, b)
	require.NoError(t, err)
	assert.Equal(t, 5, c.Count())
	assert.Equal(t, []float32{1, 0, 0, 1, 1, 1, 2, 2, 3, 3}, c.Flat())

	// Inputs are untouched.
	assert.Equal(t, 2, a.Count())
	assert.Equal(t, 3, b.Count())

	wide, _ := FromRows(3, [][]float32{{1, 2, 3}})
	_, err = Concat(a, wide)
	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
}

func TestConcatEmpty(t *testing.T) {
	empty, _ := New(2)
	b, _ := FromRows(2, [][]float32{{1, 2}})

	c, err := Concat(empty, b)
	require.NoError(t, err)
	assert.Equal(t, b.Flat(), c.Flat())
}
