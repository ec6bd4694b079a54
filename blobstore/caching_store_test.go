package blobstore

import (
	"context"
	"io"
	"sync/atomic"
	"testing"

	"github.com/hupe1980/nerdgo/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore wraps a MemoryStore and counts backend ReadAt calls.
type countingStore struct {
	*MemoryStore
	reads atomic.Int64
}

func (s *countingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.MemoryStore.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &countingBlob{Blob: b, reads: &s.reads}, nil
}

type countingBlob struct {
	Blob
	reads *atomic.Int64
}

func (b *countingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	b.reads.Add(1)
	return b.Blob.ReadAt(ctx, p, off)
}

func TestCachingStore_ReadAt(t *testing.T) {
	ctx := context.Background()
	data := make([]byte, 1000)
	for i := range data {
		data[i] = byte(i % 251)
	}

	inner := &countingStore{MemoryStore: NewMemoryStore()}
	require.NoError(t, inner.Put(ctx, "embeddings.f32", data))

	c := cache.NewLRUBlockCache(1<<20, nil)
	store := NewCachingStore(inner, c, 256)

	blob, err := store.Open(ctx, "embeddings.f32")
	require.NoError(t, err)
	defer blob.Close()

	buf := make([]byte, 300)
	n, err := blob.ReadAt(ctx, buf, 100)
	require.NoError(t, err)
	assert.Equal(t, 300, n)
	assert.Equal(t, data[100:400], buf)
	// Blocks 0 and 1 are contiguous misses and fetched with one backend read.
	assert.Equal(t, int64(1), inner.reads.Load())

	n, err = blob.ReadAt(ctx, buf[:50], 200)
	require.NoError(t, err)
	assert.Equal(t, 50, n)
	assert.Equal(t, data[200:250], buf[:50])
	assert.Equal(t, int64(1), inner.reads.Load())

	// Tail read crosses the end of the blob.
	n, err = blob.ReadAt(ctx, buf, 900)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 100, n)
	assert.Equal(t, data[900:], buf[:n])

	_, err = blob.ReadAt(ctx, buf, 1000)
	assert.ErrorIs(t, err, io.EOF)
}

func TestCachingStore_ReadRange(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	require.NoError(t, inner.Put(ctx, "b", []byte("hello cached world")))

	store := NewCachingStore(inner, cache.NewLRUBlockCache(1024, nil), 4)
	blob, err := store.Open(ctx, "b")
	require.NoError(t, err)

	rc, err := blob.ReadRange(ctx, 6, 6)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "cached", string(got))
}

func TestCachingStore_PutInvalidates(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	require.NoError(t, inner.Put(ctx, "CURRENT", []byte("MANIFEST-000001.bin")))

	c := cache.NewLRUBlockCache(1024, nil)
	store := NewCachingStore(inner, c, 8)

	got, err := Get(ctx, store, "CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "MANIFEST-000001.bin", string(got))
	assert.Positive(t, c.Len())

	require.NoError(t, store.Put(ctx, "CURRENT", []byte("MANIFEST-000002.bin")))
	assert.Equal(t, 0, c.Len())

	got, err = Get(ctx, store, "CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "MANIFEST-000002.bin", string(got))
}
