package embedding

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDim is returned for a non-positive dimension.
	ErrInvalidDim = errors.New("embedding: dimension must be positive")

	// ErrCorrupt is returned when a headered matrix fails its checksum.
	ErrCorrupt = errors.New("embedding: corrupt matrix")
)

// FormatError reports a persisted matrix whose size does not fit its shape.
type FormatError struct {
	Path   string
	Size   int64
	Dim    int
	Reason string
}

func (e *FormatError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("embedding: invalid format (%d bytes, dim %d): %s", e.Size, e.Dim, e.Reason)
	}
	return fmt.Sprintf("embedding: invalid format %s (%d bytes, dim %d): %s", e.Path, e.Size, e.Dim, e.Reason)
}

// ErrDimensionMismatch reports vectors or stores of different widths.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("embedding: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// IndexError reports a row id outside the store.
type IndexError struct {
	ID    uint32
	Count int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("embedding: row %d out of range [0, %d)", e.ID, e.Count)
}
