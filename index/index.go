package index

import (
	"context"
	"errors"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/nerdgo/embedding"
)

// ErrInvalidK is returned when k is not positive.
var ErrInvalidK = errors.New("index: k must be positive")

// ErrDimensionMismatch reports a query of the wrong width.
type ErrDimensionMismatch = embedding.ErrDimensionMismatch

// Candidate is a scored search hit.
type Candidate struct {
	ID    uint32
	Score float32
}

// Index is a top-k similarity index.
type Index interface {
	// Search returns up to k candidates ordered by descending score, ties by
	// ascending id.
	Search(ctx context.Context, query []float32, k int, opts ...SearchOption) ([]Candidate, error)
	// Len returns the number of indexed rows.
	Len() int
	// Dim returns the vector width.
	Dim() int
}

type searchOptions struct {
	filter *roaring.Bitmap
}

// SearchOption configures a single search.
type SearchOption func(*searchOptions)

// WithFilter restricts candidates to ids in the bitmap. Ids outside the
// index are ignored.
func WithFilter(filter *roaring.Bitmap) SearchOption {
	return func(o *searchOptions) { o.filter = filter }
}
