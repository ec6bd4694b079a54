package embedding

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hupe1980/nerdgo/internal/mmap"
)

// Load memory-maps the matrix at path. The returned store must be closed.
//
// Raw files fail with *FormatError when their size is not a multiple of
// dim*4. Headered files must declare dim.
func Load(path string, dim int) (*Store, error) {
	if dim <= 0 {
		return nil, ErrInvalidDim
	}

	m, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("embedding: load %s: %w", path, err)
	}

	s, err := fromMapping(m, dim)
	if err != nil {
		_ = m.Close()
		var fe *FormatError
		if errors.As(err, &fe) {
			fe.Path = path
		}
		return nil, err
	}
	return s, nil
}

func fromMapping(m *mmap.Mapping, dim int) (*Store, error) {
	// Mapped headered files are checksummed lazily by Verify.
	off, count, err := payloadShape(m.Bytes(), dim, false)
	if err != nil {
		return nil, err
	}

	data, err := m.Float32s(off)
	if err != nil {
		return nil, err
	}
	_ = m.Advise(mmap.AccessRandom)

	return &Store{dim: dim, count: count, data: data[:count*dim], closer: m}, nil
}

// Verify checks the header checksum of a headered matrix file.
// Raw files carry no checksum and always verify.
func Verify(path string) error {
	m, err := mmap.Open(path)
	if err != nil {
		return err
	}
	defer m.Close()

	b := m.Bytes()
	if !hasHeader(b) {
		return nil
	}
	h, err := decodeHeader(b)
	if err != nil {
		return err
	}
	_, _, err = payloadShape(b, h.dim, true)
	return err
}

// Save writes s to path atomically: readers observe either the previous file
// or the complete new one.
func Save(s *Store, path string, layout Layout) (err error) {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("embedding: save %s: %w", path, err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	w := bufio.NewWriterSize(f, 1<<20)
	if err = Encode(w, s, layout); err != nil {
		return err
	}
	if err = w.Flush(); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
