package mmap

import "errors"

// AccessPattern provides hints to the kernel about how the data will be accessed.
type AccessPattern int

const (
	// AccessDefault is the default access pattern (no specific advice).
	AccessDefault AccessPattern = iota
	// AccessSequential expects data to be accessed sequentially (full scans).
	AccessSequential
	// AccessRandom expects data to be accessed randomly (row lookups).
	AccessRandom
	// AccessWillNeed expects data to be accessed in the near future.
	AccessWillNeed
)

var (
	// ErrClosed is returned when attempting to access a closed mapping.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned when the file size is invalid.
	ErrInvalidSize = errors.New("mmap: invalid file size")
	// ErrInvalidOffset is returned when an offset is negative or past the end.
	ErrInvalidOffset = errors.New("mmap: invalid offset")
	// ErrMisaligned is returned when a float32 view would not be 4-byte aligned.
	ErrMisaligned = errors.New("mmap: float32 view is misaligned")
)
