package merge

import (
	"fmt"

	"github.com/hupe1980/nerdgo/catalog"
	"github.com/hupe1980/nerdgo/embedding"
)

// Result is a merged (store, catalog) pair.
type Result struct {
	Store   *embedding.Store
	Catalog *catalog.Catalog
	// Offset is the id assigned to the first batch entry.
	Offset int
	// Added is the number of batch entries.
	Added int
}

// CheckPairing verifies that store and cat describe the same entities.
func CheckPairing(store *embedding.Store, cat *catalog.Catalog) error {
	if store.Count() != cat.Len() {
		return fmt.Errorf("%w: store has %d rows, catalog has %d records", ErrPairingViolation, store.Count(), cat.Len())
	}
	return nil
}

// Merge appends batch to (store, cat). Entry i receives id cat.Len()+i and
// row store.Count()+i. The inputs are not modified.
func Merge(store *embedding.Store, cat *catalog.Catalog, batch *Batch) (*Result, error) {
	if err := CheckPairing(store, cat); err != nil {
		return nil, err
	}
	if batch.Dim != store.Dim() {
		return nil, &embedding.ErrDimensionMismatch{Expected: store.Dim(), Actual: batch.Dim}
	}

	vectors, err := batch.Vectors()
	if err != nil {
		return nil, err
	}

	offset := cat.Len()
	merged, err := embedding.Concat(store, vectors)
	if err != nil {
		return nil, err
	}
	mergedCat := catalog.Append(cat, batch.Partials())

	// Both sides grew by the same ordered sequence.
	if err := CheckPairing(merged, mergedCat); err != nil {
		return nil, err
	}

	return &Result{
		Store:   merged,
		Catalog: mergedCat,
		Offset:  offset,
		Added:   batch.Len(),
	}, nil
}
