package mmap

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMmap_OpenReadClose(t *testing.T) {
	content := []byte("Hello, Mmap!")
	path := filepath.Join(t.TempDir(), "mmap_test")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, len(content), m.Size())
	assert.Equal(t, content, m.Bytes())
	assert.Equal(t, path, m.Path())

	buf := make([]byte, 5)
	n, err := m.ReadAt(buf, 7)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "Mmap!", string(buf))

	n, err = m.ReadAt(make([]byte, 10), 100)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)

	buf3 := make([]byte, 10)
	n, err = m.ReadAt(buf3, 7)
	assert.Equal(t, 5, n)
	assert.Equal(t, io.EOF, err)

	_, err = m.ReadAt(buf, -1)
	assert.Equal(t, ErrInvalidOffset, err)
}

func TestMmap_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 0, m.Size())
	f, err := m.Float32s(0)
	require.NoError(t, err)
	assert.Empty(t, f)
}

func TestMmap_Float32s(t *testing.T) {
	want := []float32{1, -2.5, float32(math.Pi), 0}
	raw := make([]byte, 4*len(want))
	for i, v := range want {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	path := filepath.Join(t.TempDir(), "floats.f32")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	got, err := m.Float32s(0)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = m.Float32s(8)
	require.NoError(t, err)
	assert.Equal(t, want[2:], got)

	_, err = m.Float32s(len(raw) + 1)
	assert.ErrorIs(t, err, ErrInvalidOffset)
}

func TestMmap_AfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "closed")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o600))

	m, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, m.Advise(AccessRandom))
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	assert.Nil(t, m.Bytes())
	assert.ErrorIs(t, m.Advise(AccessRandom), ErrClosed)
	_, err = m.Float32s(0)
	assert.ErrorIs(t, err, ErrClosed)
}
