package catalog

import (
	"fmt"
	"iter"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// Catalog maps dense ids 0..Len()-1 to records.
// It is safe for concurrent readers.
type Catalog struct {
	records []Record

	typesOnce sync.Once
	types     map[string]*roaring.Bitmap
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{}
}

// FromRecords builds a catalog from records whose ids are exactly 0..n-1 in order.
func FromRecords(records []Record) (*Catalog, error) {
	for i, r := range records {
		if r.ID != ID(i) {
			return nil, fmt.Errorf("%w: position %d holds id %d", ErrIDGap, i, r.ID)
		}
	}
	return &Catalog{records: records}, nil
}

// Len returns the number of records.
func (c *Catalog) Len() int { return len(c.records) }

// Get returns the record with the given id.
func (c *Catalog) Get(id ID) (Record, error) {
	if int64(id) >= int64(len(c.records)) {
		return Record{}, fmt.Errorf("%w: id %d (catalog has %d)", ErrNotFound, id, len(c.records))
	}
	return c.records[id], nil
}

// All yields every record in id order.
func (c *Catalog) All() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for _, r := range c.records {
			if !yield(r) {
				return
			}
		}
	}
}

// Append returns a new catalog with records appended in order. The record at
// position i receives id c.Len()+i. c is not modified.
func Append(c *Catalog, records []Partial) *Catalog {
	offset := len(c.records)
	out := make([]Record, offset, offset+len(records))
	copy(out, c.records)
	for i, p := range records {
		out = append(out, p.WithID(ID(offset+i)))
	}
	return &Catalog{records: out}
}

// Filter returns the ids of records carrying any of the labels.
// The result is a fresh bitmap owned by the caller.
func (c *Catalog) Filter(labels ...string) *roaring.Bitmap {
	idx := c.typeIndex()
	out := roaring.New()
	for _, l := range labels {
		if bm, ok := idx[l]; ok {
			out.Or(bm)
		}
	}
	return out
}

// TypeCounts returns the number of records per type label.
func (c *Catalog) TypeCounts() map[string]uint64 {
	idx := c.typeIndex()
	out := make(map[string]uint64, len(idx))
	for l, bm := range idx {
		out[l] = bm.GetCardinality()
	}
	return out
}

// TypeLabels returns all type labels in sorted order.
func (c *Catalog) TypeLabels() []string {
	idx := c.typeIndex()
	labels := make([]string, 0, len(idx))
	for l := range idx {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

func (c *Catalog) typeIndex() map[string]*roaring.Bitmap {
	c.typesOnce.Do(func() {
		idx := make(map[string]*roaring.Bitmap)
		for _, r := range c.records {
			for _, l := range r.Types {
				bm, ok := idx[l]
				if !ok {
					bm = roaring.New()
					idx[l] = bm
				}
				bm.Add(r.ID)
			}
		}
		for _, bm := range idx {
			bm.RunOptimize()
		}
		c.types = idx
	})
	return c.types
}
