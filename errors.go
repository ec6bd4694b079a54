package nerdgo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/nerdgo/catalog"
	"github.com/hupe1980/nerdgo/embedding"
	"github.com/hupe1980/nerdgo/index"
	"github.com/hupe1980/nerdgo/merge"
)

var (
	// ErrInvalidK is returned when k is not positive after defaults are applied.
	ErrInvalidK = errors.New("k must be positive")

	// ErrConsistency is returned when the index yields an id the catalog does
	// not know. It means the store and catalog are out of sync and the
	// service must not keep serving.
	ErrConsistency = errors.New("store and catalog are inconsistent")

	// ErrPairingViolation is returned at init when the store and catalog
	// differ in size.
	ErrPairingViolation = errors.New("store and catalog are not paired")

	// ErrClosed is returned by operations on a closed service.
	ErrClosed = errors.New("service is closed")
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var dm *embedding.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}
	if errors.Is(err, index.ErrInvalidK) {
		return fmt.Errorf("%w: %w", ErrInvalidK, err)
	}
	if errors.Is(err, merge.ErrPairingViolation) {
		return fmt.Errorf("%w: %w", ErrPairingViolation, err)
	}
	if errors.Is(err, catalog.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrConsistency, err)
	}

	return err
}
