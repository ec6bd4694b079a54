package embedding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"unsafe"

	"github.com/hupe1980/nerdgo/blobstore"
)

// Open loads a persisted matrix from a blob store.
//
// Memory-mapped blobs are used in place and stay open until the store is
// closed; other blobs are read fully into memory.
func Open(ctx context.Context, bs blobstore.BlobStore, name string, dim int) (*Store, error) {
	if dim <= 0 {
		return nil, ErrInvalidDim
	}

	b, err := bs.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("embedding: open %s: %w", name, err)
	}

	if m, ok := b.(blobstore.Mappable); ok {
		if data, err := m.Bytes(); err == nil {
			if s, ok, err := viewBlob(data, dim, b); ok || err != nil {
				if err != nil {
					_ = b.Close()
					return nil, withPath(err, name)
				}
				return s, nil
			}
		}
	}

	defer b.Close()
	data, err := blobstore.ReadAll(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("embedding: read %s: %w", name, err)
	}
	s, err := Decode(data, dim)
	if err != nil {
		return nil, withPath(err, name)
	}
	return s, nil
}

// viewBlob wraps mapped bytes without copying when the payload is aligned.
func viewBlob(data []byte, dim int, closer io.Closer) (*Store, bool, error) {
	off, count, err := payloadShape(data, dim, false)
	if err != nil {
		return nil, false, err
	}
	payload := data[off:]
	if len(payload) == 0 {
		return nil, false, nil
	}
	if uintptr(unsafe.Pointer(&payload[0]))%4 != 0 {
		return nil, false, nil
	}
	flat := unsafe.Slice((*float32)(unsafe.Pointer(&payload[0])), count*dim)
	return &Store{dim: dim, count: count, data: flat, closer: closer}, true, nil
}

func withPath(err error, name string) error {
	var fe *FormatError
	if errors.As(err, &fe) {
		fe.Path = name
	}
	return err
}

// Write stores s under name. The blob becomes visible only when complete.
func Write(ctx context.Context, bs blobstore.BlobStore, name string, s *Store, layout Layout) error {
	w, err := bs.Create(ctx, name)
	if err != nil {
		return err
	}
	if err := Encode(w, s, layout); err != nil {
		_ = w.Abort()
		return err
	}
	return w.Close()
}

// Reader reads individual rows from a blob without loading the matrix.
// It suits remote blobs behind a blobstore.CachingStore.
type Reader struct {
	blob  blobstore.Blob
	dim   int
	off   int64
	count int
}

// NewReader inspects the blob layout and returns a row reader on it.
// The reader takes ownership of b.
func NewReader(ctx context.Context, b blobstore.Blob, dim int) (*Reader, error) {
	if dim <= 0 {
		return nil, ErrInvalidDim
	}

	size := b.Size()
	r := &Reader{blob: b, dim: dim}

	if size >= headerSize {
		hdr := make([]byte, headerSize)
		if _, err := b.ReadAt(ctx, hdr, 0); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if hasHeader(hdr) {
			h, err := decodeHeader(hdr)
			if err != nil {
				return nil, err
			}
			if h.dim != dim {
				return nil, &ErrDimensionMismatch{Expected: dim, Actual: h.dim}
			}
			if size-headerSize != int64(h.count)*int64(dim)*4 {
				return nil, &FormatError{Size: size, Dim: dim, Reason: fmt.Sprintf("header declares %d rows", h.count)}
			}
			r.off = headerSize
			r.count = h.count
			return r, nil
		}
	}

	if size%int64(dim*4) != 0 {
		return nil, &FormatError{Size: size, Dim: dim, Reason: "size is not a multiple of dim*4"}
	}
	r.count = int(size / int64(dim*4))
	return r, nil
}

// Count returns the number of rows.
func (r *Reader) Count() int { return r.count }

// Dim returns the row width.
func (r *Reader) Dim() int { return r.dim }

// Row reads row id into a new slice.
func (r *Reader) Row(ctx context.Context, id uint32) ([]float32, error) {
	if int64(id) >= int64(r.count) {
		return nil, &IndexError{ID: id, Count: r.count}
	}
	row := make([]float32, r.dim)
	buf := float32Bytes(row)
	if _, err := r.blob.ReadAt(ctx, buf, r.off+int64(id)*int64(r.dim)*4); err != nil {
		return nil, err
	}
	return row, nil
}

// Close closes the underlying blob.
func (r *Reader) Close() error {
	return r.blob.Close()
}
