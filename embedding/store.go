package embedding

import (
	"io"
	"iter"

	"github.com/hupe1980/nerdgo/internal/checksum"
)

// Store is an immutable count × dim float32 matrix.
// It is safe for concurrent readers.
type Store struct {
	dim   int
	count int
	data  []float32

	// closer releases the memory backing data, if any.
	closer io.Closer
}

// New returns an empty store of the given width.
func New(dim int) (*Store, error) {
	if dim <= 0 {
		return nil, ErrInvalidDim
	}
	return &Store{dim: dim, data: []float32{}}, nil
}

// FromRows copies rows into a new store. Every row must have length dim.
func FromRows(dim int, rows [][]float32) (*Store, error) {
	if dim <= 0 {
		return nil, ErrInvalidDim
	}
	data := make([]float32, 0, len(rows)*dim)
	for _, r := range rows {
		if len(r) != dim {
			return nil, &ErrDimensionMismatch{Expected: dim, Actual: len(r)}
		}
		data = append(data, r...)
	}
	return &Store{dim: dim, count: len(rows), data: data}, nil
}

// FromFlat wraps a row-major buffer without copying.
// The caller must not modify data afterwards.
func FromFlat(dim int, data []float32) (*Store, error) {
	if dim <= 0 {
		return nil, ErrInvalidDim
	}
	if len(data)%dim != 0 {
		return nil, &FormatError{Size: int64(len(data)) * 4, Dim: dim, Reason: "length is not a multiple of dim"}
	}
	return &Store{dim: dim, count: len(data) / dim, data: data}, nil
}

// Dim returns the row width.
func (s *Store) Dim() int { return s.dim }

// Count returns the number of rows.
func (s *Store) Count() int { return s.count }

// Flat returns the row-major backing buffer. It must not be modified.
func (s *Store) Flat() []float32 { return s.data }

// SizeBytes returns the payload size in bytes.
func (s *Store) SizeBytes() int64 { return int64(len(s.data)) * 4 }

// Checksum returns the CRC32C of the payload bytes.
func (s *Store) Checksum() uint32 { return checksum.Float32s(s.data) }

// Row returns a read-only view of row id.
func (s *Store) Row(id uint32) ([]float32, error) {
	if int64(id) >= int64(s.count) {
		return nil, &IndexError{ID: id, Count: s.count}
	}
	return s.row(int(id)), nil
}

func (s *Store) row(i int) []float32 {
	start := i * s.dim
	return s.data[start : start+s.dim : start+s.dim]
}

// Rows returns the rows for ids in the given order.
// All ids are validated before the sequence is returned.
func (s *Store) Rows(ids []uint32) (iter.Seq2[uint32, []float32], error) {
	for _, id := range ids {
		if int64(id) >= int64(s.count) {
			return nil, &IndexError{ID: id, Count: s.count}
		}
	}
	return func(yield func(uint32, []float32) bool) {
		for _, id := range ids {
			if !yield(id, s.row(int(id))) {
				return
			}
		}
	}, nil
}

// All yields every row in id order.
func (s *Store) All() iter.Seq2[uint32, []float32] {
	return func(yield func(uint32, []float32) bool) {
		for i := range s.count {
			if !yield(uint32(i), s.row(i)) {
				return
			}
		}
	}
}

// Close releases the backing memory of a loaded store. Rows obtained from the
// store must not be used afterwards. Close is a no-op for in-memory stores.
func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}
	c := s.closer
	s.closer = nil
	return c.Close()
}

// Concat returns a new store holding the rows of a followed by the rows of b.
// Neither input is modified; the result is heap-backed.
func Concat(a, b *Store) (*Store, error) {
	if a.dim != b.dim {
		return nil, &ErrDimensionMismatch{Expected: a.dim, Actual: b.dim}
	}
	data := make([]float32, 0, len(a.data)+len(b.data))
	data = append(data, a.data...)
	data = append(data, b.data...)
	return &Store{dim: a.dim, count: a.count + b.count, data: data}, nil
}
