package embedding

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"unsafe"

	"github.com/hupe1980/nerdgo/internal/checksum"
)

// Layout selects the persisted matrix layout.
type Layout int

const (
	// LayoutRaw is a header-less row-major float32 buffer.
	LayoutRaw Layout = iota
	// LayoutHeader prefixes the buffer with a shape and checksum header.
	LayoutHeader
)

func (l Layout) String() string {
	switch l {
	case LayoutRaw:
		return "raw"
	case LayoutHeader:
		return "header"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// ParseLayout parses "raw" or "header".
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(s) {
	case "", "raw":
		return LayoutRaw, nil
	case "header":
		return LayoutHeader, nil
	default:
		return 0, fmt.Errorf("embedding: unknown layout %q", s)
	}
}

const (
	headerSize    = 32
	headerVersion = 1
)

var headerMagic = [8]byte{'N', 'E', 'R', 'D', 'E', 'M', 'B', '1'}

type header struct {
	dim   int
	count int
	sum   uint32
}

func hasHeader(b []byte) bool {
	return len(b) >= headerSize && bytes.Equal(b[:8], headerMagic[:])
}

func encodeHeader(dim, count int, sum uint32) []byte {
	b := make([]byte, headerSize)
	copy(b[:8], headerMagic[:])
	binary.LittleEndian.PutUint32(b[8:12], headerVersion)
	binary.LittleEndian.PutUint32(b[12:16], uint32(dim))
	binary.LittleEndian.PutUint64(b[16:24], uint64(count))
	binary.LittleEndian.PutUint32(b[24:28], sum)
	return b
}

func decodeHeader(b []byte) (header, error) {
	if v := binary.LittleEndian.Uint32(b[8:12]); v != headerVersion {
		return header{}, fmt.Errorf("%w: unsupported header version %d", ErrCorrupt, v)
	}
	return header{
		dim:   int(binary.LittleEndian.Uint32(b[12:16])),
		count: int(binary.LittleEndian.Uint64(b[16:24])),
		sum:   binary.LittleEndian.Uint32(b[24:28]),
	}, nil
}

// payloadShape validates a matrix buffer against dim and returns the payload
// offset and row count.
func payloadShape(b []byte, dim int, verify bool) (off, count int, err error) {
	size := int64(len(b))
	if !hasHeader(b) {
		if size%int64(dim*4) != 0 {
			return 0, 0, &FormatError{Size: size, Dim: dim, Reason: "size is not a multiple of dim*4"}
		}
		return 0, int(size / int64(dim*4)), nil
	}

	h, err := decodeHeader(b)
	if err != nil {
		return 0, 0, err
	}
	if h.dim != dim {
		return 0, 0, &ErrDimensionMismatch{Expected: dim, Actual: h.dim}
	}
	payload := b[headerSize:]
	if int64(len(payload)) != int64(h.count)*int64(dim)*4 {
		return 0, 0, &FormatError{Size: size, Dim: dim, Reason: fmt.Sprintf("header declares %d rows", h.count)}
	}
	if verify && checksum.Sum(payload) != h.sum {
		return 0, 0, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	return headerSize, h.count, nil
}

// Decode builds a heap-backed store from a persisted matrix in either layout.
func Decode(data []byte, dim int) (*Store, error) {
	if dim <= 0 {
		return nil, ErrInvalidDim
	}
	off, count, err := payloadShape(data, dim, true)
	if err != nil {
		return nil, err
	}
	flat := make([]float32, count*dim)
	copy(float32Bytes(flat), data[off:])
	return &Store{dim: dim, count: count, data: flat}, nil
}

// Encode writes s to w in the given layout.
func Encode(w io.Writer, s *Store, layout Layout) error {
	if layout == LayoutHeader {
		if _, err := w.Write(encodeHeader(s.dim, s.count, s.Checksum())); err != nil {
			return err
		}
	}
	_, err := w.Write(float32Bytes(s.data))
	return err
}

// EncodedSize returns the number of bytes Encode writes.
func EncodedSize(s *Store, layout Layout) int64 {
	n := s.SizeBytes()
	if layout == LayoutHeader {
		n += headerSize
	}
	return n
}

// float32Bytes views v as its in-memory bytes. Persisted matrices are
// little-endian, which matches every platform the package supports.
func float32Bytes(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*4)
}
