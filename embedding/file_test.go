package embedding

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/nerdgo/blobstore"
	"github.com/hupe1980/nerdgo/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomStore(t *testing.T, n, dim int) *Store {
	t.Helper()
	s, err := FromRows(dim, testutil.NewRNG(42).GaussianVectors(n, dim))
	require.NoError(t, err)
	return s
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	for _, layout := range []Layout{LayoutRaw, LayoutHeader} {
		t.Run(layout.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "embeddings.f32")
			s := randomStore(t, 17, 8)

			require.NoError(t, Save(s, path, layout))

			loaded, err := Load(path, 8)
			require.NoError(t, err)
			defer loaded.Close()

			assert.Equal(t, s.Count(), loaded.Count())
			assert.Equal(t, s.Dim(), loaded.Dim())
			for i := range s.Flat() {
				assert.Equal(t, math.Float32bits(s.Flat()[i]), math.Float32bits(loaded.Flat()[i]))
			}
			assert.NoError(t, Verify(path))
		})
	}
}

func TestSave_RawHasNoHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.f32")
	s, _ := FromRows(2, [][]float32{{1, 0}, {0, 1}})
	require.NoError(t, Save(s, path, LayoutRaw))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(2*2*4), info.Size())
}

func TestLoad_FormatError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.f32")
	require.NoError(t, os.WriteFile(path, make([]byte, 10), 0o600))

	_, err := Load(path, 2)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, path, fe.Path)
	assert.Equal(t, int64(10), fe.Size)
}

func TestLoad_HeaderDimMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "e.f32")
	require.NoError(t, Save(randomStore(t, 3, 4), path, LayoutHeader))

	_, err := Load(path, 8)
	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 4, dm.Actual)
}

func TestLoad_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.f32")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	s, err := Load(path, 768)
	require.NoError(t, err)
	defer s.Close()
	assert.Zero(t, s.Count())
}

func TestDecode_Corrupt(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, randomStore(t, 2, 4), LayoutHeader))

	data := buf.Bytes()
	data[len(data)-1] ^= 0xff

	_, err := Decode(data, 4)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestOpenWrite_Blob(t *testing.T) {
	ctx := context.Background()
	s := randomStore(t, 5, 3)

	stores := map[string]blobstore.BlobStore{
		"memory": blobstore.NewMemoryStore(),
		"local":  blobstore.NewLocalStore(t.TempDir()),
	}
	for name, bs := range stores {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, Write(ctx, bs, "embeddings-000001.f32", s, LayoutHeader))

			got, err := Open(ctx, bs, "embeddings-000001.f32", 3)
			require.NoError(t, err)
			defer got.Close()
			assert.Equal(t, s.Flat(), got.Flat())

			b, err := bs.Open(ctx, "embeddings-000001.f32")
			require.NoError(t, err)
			r, err := NewReader(ctx, b, 3)
			require.NoError(t, err)
			defer r.Close()

			assert.Equal(t, 5, r.Count())
			row, err := r.Row(ctx, 4)
			require.NoError(t, err)
			want, _ := s.Row(4)
			assert.Equal(t, want, row)

			_, err = r.Row(ctx, 5)
			var ie *IndexError
			require.ErrorAs(t, err, &ie)
		})
	}
}

func TestParseLayout(t *testing.T) {
	l, err := ParseLayout("HEADER")
	require.NoError(t, err)
	assert.Equal(t, LayoutHeader, l)

	l, err = ParseLayout("")
	require.NoError(t, err)
	assert.Equal(t, LayoutRaw, l)

	_, err = ParseLayout("npy")
	assert.Error(t, err)
}
