package catalog

import "errors"

var (
	// ErrNotFound is returned when an id has no record.
	ErrNotFound = errors.New("catalog: entity not found")

	// ErrIDGap is returned when records do not cover 0..n-1 in order.
	ErrIDGap = errors.New("catalog: ids are not dense")

	// ErrInvalidSnapshot is returned for unreadable or corrupted snapshots.
	ErrInvalidSnapshot = errors.New("catalog: invalid snapshot")
)
