package merge

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/nerdgo/catalog"
	"github.com/hupe1980/nerdgo/embedding"
)

var (
	// ErrBatchLength is returned when a vector file and an entity file disagree on row count.
	ErrBatchLength = errors.New("merge: vector and entity counts differ")

	// ErrPairingViolation is returned when a store and catalog are not aligned.
	ErrPairingViolation = errors.New("merge: store and catalog are not aligned")
)

// Entry pairs one embedding with the entity it encodes.
type Entry struct {
	Vector []float32
	Entity catalog.Partial
}

// Batch is an ordered list of entries of equal width.
type Batch struct {
	Dim     int
	Entries []Entry
}

// NewBatch returns an empty batch of the given width.
func NewBatch(dim int) *Batch {
	return &Batch{Dim: dim}
}

// Add appends an entry. The vector is not copied.
func (b *Batch) Add(vector []float32, entity catalog.Partial) error {
	if len(vector) != b.Dim {
		return &embedding.ErrDimensionMismatch{Expected: b.Dim, Actual: len(vector)}
	}
	b.Entries = append(b.Entries, Entry{Vector: vector, Entity: entity})
	return nil
}

// Len returns the number of entries.
func (b *Batch) Len() int { return len(b.Entries) }

// Append adds the entries of other to b. Widths must match.
func (b *Batch) Append(other *Batch) error {
	if other.Dim != b.Dim {
		return &embedding.ErrDimensionMismatch{Expected: b.Dim, Actual: other.Dim}
	}
	b.Entries = append(b.Entries, other.Entries...)
	return nil
}

// Vectors returns the batch vectors as a store.
func (b *Batch) Vectors() (*embedding.Store, error) {
	if b.Dim <= 0 {
		return nil, embedding.ErrInvalidDim
	}
	flat := make([]float32, 0, len(b.Entries)*b.Dim)
	for _, e := range b.Entries {
		if len(e.Vector) != b.Dim {
			return nil, &embedding.ErrDimensionMismatch{Expected: b.Dim, Actual: len(e.Vector)}
		}
		flat = append(flat, e.Vector...)
	}
	return embedding.FromFlat(b.Dim, flat)
}

// Partials returns the batch entities in order.
func (b *Batch) Partials() []catalog.Partial {
	out := make([]catalog.Partial, len(b.Entries))
	for i, e := range b.Entries {
		out[i] = e.Entity
	}
	return out
}

// PairBatch zips vectors with raw extraction lines, in order.
// It fails with ErrBatchLength when their counts differ.
func PairBatch(vectors *embedding.Store, entities []catalog.RawEntity) (*Batch, error) {
	if vectors.Count() != len(entities) {
		return nil, fmt.Errorf("%w: %d vectors, %d entities", ErrBatchLength, vectors.Count(), len(entities))
	}
	b := &Batch{Dim: vectors.Dim(), Entries: make([]Entry, 0, len(entities))}
	for id, vec := range vectors.All() {
		b.Entries = append(b.Entries, Entry{Vector: vec, Entity: entities[id].Partial()})
	}
	return b, nil
}

// DecodeBatch pairs an encoded vector matrix with JSON-lines entities.
func DecodeBatch(vectors []byte, entities io.Reader, dim int) (*Batch, error) {
	store, err := embedding.Decode(vectors, dim)
	if err != nil {
		return nil, err
	}
	raw, err := catalog.ReadRawEntities(entities)
	if err != nil {
		return nil, err
	}
	return PairBatch(store, raw)
}

// ReadBatch reads a batch from an extraction run's two output files: the
// encoder's float32 matrix and the JSON-lines entity dump.
func ReadBatch(vectorsPath, entitiesPath string, dim int) (*Batch, error) {
	vectors, err := embedding.Load(vectorsPath, dim)
	if err != nil {
		return nil, err
	}
	defer vectors.Close()

	f, err := os.Open(entitiesPath)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	defer f.Close()

	raw, err := catalog.ReadRawEntities(f)
	if err != nil {
		return nil, err
	}

	// Copy rows out of the mapping before it is closed.
	heap, err := embedding.FromFlat(dim, append([]float32(nil), vectors.Flat()...))
	if err != nil {
		return nil, err
	}
	return PairBatch(heap, raw)
}
