package catalog

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/hupe1980/nerdgo/blobstore"
	"github.com/hupe1980/nerdgo/codec"
	"github.com/hupe1980/nerdgo/internal/checksum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCatalog() *Catalog {
	return Append(New(), []Partial{
		{Title: "Zürich", Description: "City in Switzerland", Types: []string{"city"}, WikipediaPageID: "33492", KBID: "Q72"},
		{Title: "\"Quoted\" name", Description: "line\nbreak", Types: []string{}},
		{Title: "", Description: ""},
	})
}

func TestSnapshot_RoundTrip(t *testing.T) {
	for _, cdc := range []codec.Codec{codec.GoJSON{}, codec.JSON{}} {
		for _, comp := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
			t.Run(cdc.Name()+"/"+comp.String(), func(t *testing.T) {
				c := sampleCatalog()

				var buf bytes.Buffer
				require.NoError(t, Encode(&buf, c, WithCodec(cdc), WithCompression(comp)))

				got, err := Decode(buf.Bytes())
				require.NoError(t, err)
				assert.Equal(t, slices.Collect(c.All()), slices.Collect(got.All()))
			})
		}
	}
}

func TestSnapshot_LargeCompresses(t *testing.T) {
	var ps []Partial
	for range 500 {
		ps = append(ps, Partial{Title: "Springfield", Description: "A town", Types: []string{"city"}})
	}
	c := Append(New(), ps)

	var plain, packed bytes.Buffer
	require.NoError(t, Encode(&plain, c))
	require.NoError(t, Encode(&packed, c, WithCompression(CompressionLZ4)))
	assert.Less(t, packed.Len(), plain.Len())

	got, err := Decode(packed.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 500, got.Len())
}

func TestSnapshot_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, New()))

	got, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Zero(t, got.Len())
}

func TestSnapshot_Corrupt(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleCatalog()))
	data := buf.Bytes()

	bad := bytes.Clone(data)
	bad[len(bad)-2] ^= 0xff
	_, err := Decode(bad)
	require.ErrorIs(t, err, ErrInvalidSnapshot)

	_, err = Decode(data[:20])
	require.ErrorIs(t, err, ErrInvalidSnapshot)

	_, err = Decode([]byte("not a snapshot at all, definitely"))
	require.ErrorIs(t, err, ErrInvalidSnapshot)
}

// setRawLen rewrites the RawLen header field. With reseal the checksum is
// recomputed, so only the length bounds can reject the snapshot.
func setRawLen(data []byte, rawLen uint64, reseal bool) []byte {
	out := bytes.Clone(data)
	off := 14 + int(out[13]) + 8
	binary.LittleEndian.PutUint64(out[off:], rawLen)
	if reseal {
		sumOff := off + 16
		h := checksum.New()
		_, _ = h.Write(out[:sumOff])
		_, _ = h.Write(out[sumOff+4:])
		binary.LittleEndian.PutUint32(out[sumOff:], h.Sum32())
	}
	return out
}

func TestSnapshot_CorruptHeaderLength(t *testing.T) {
	for _, comp := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(comp.String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, sampleCatalog(), WithCompression(comp)))

			for _, reseal := range []bool{false, true} {
				for _, rawLen := range []uint64{1 << 62, 1<<32 + 7, 0} {
					bad := setRawLen(buf.Bytes(), rawLen, reseal)
					assert.NotPanics(t, func() {
						_, err := Decode(bad)
						assert.ErrorIs(t, err, ErrInvalidSnapshot)
					})
				}
			}
		})
	}
}

func TestSnapshot_HeaderCovered(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleCatalog()))

	// Flip a bit in the record count.
	bad := bytes.Clone(buf.Bytes())
	bad[14+int(bad[13])] ^= 0x01
	_, err := Decode(bad)
	require.ErrorIs(t, err, ErrInvalidSnapshot)
	assert.Contains(t, err.Error(), "checksum mismatch")
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.snap")
	c := sampleCatalog()

	require.NoError(t, Save(c, path, WithCompression(CompressionZSTD)))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, slices.Collect(c.All()), slices.Collect(got.All()))

	// No temp files are left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteRead_Blob(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()
	c := sampleCatalog()

	require.NoError(t, Write(ctx, bs, "catalog-000001.snap", c))
	got, err := Read(ctx, bs, "catalog-000001.snap")
	require.NoError(t, err)
	assert.Equal(t, c.Len(), got.Len())

	_, err = Read(ctx, bs, "missing.snap")
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestParseCompression(t *testing.T) {
	c, err := ParseCompression("ZSTD")
	require.NoError(t, err)
	assert.Equal(t, CompressionZSTD, c)

	_, err = ParseCompression("gzip")
	assert.Error(t, err)
}
