package index

import (
	"context"
	"runtime"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/nerdgo/distance"
	"github.com/hupe1980/nerdgo/embedding"
	"golang.org/x/sync/errgroup"
)

// DefaultShardSize is the number of rows scored between context checks.
const DefaultShardSize = 1 << 16

// Flat is an exact inner-product index over an embedding store.
// It is safe for concurrent use.
type Flat struct {
	store       *embedding.Store
	shardSize   int
	parallelism int
}

var _ Index = (*Flat)(nil)

// Option configures Build.
type Option func(*Flat)

// WithParallelism sets how many shards are scored concurrently.
// Values below 1 mean GOMAXPROCS. Default: 1.
func WithParallelism(n int) Option {
	return func(f *Flat) {
		if n < 1 {
			n = runtime.GOMAXPROCS(0)
		}
		f.parallelism = n
	}
}

// WithShardSize sets the number of rows per shard. Default: DefaultShardSize.
func WithShardSize(n int) Option {
	return func(f *Flat) {
		if n > 0 {
			f.shardSize = n
		}
	}
}

// Build returns a flat index over store. The store must outlive the index.
func Build(store *embedding.Store, opts ...Option) *Flat {
	f := &Flat{
		store:       store,
		shardSize:   DefaultShardSize,
		parallelism: 1,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Len returns the number of indexed rows.
func (f *Flat) Len() int { return f.store.Count() }

// Dim returns the vector width.
func (f *Flat) Dim() int { return f.store.Dim() }

// Search scores every admitted row against query and returns the best k.
// The result has min(k, admitted rows) entries.
func (f *Flat) Search(ctx context.Context, query []float32, k int, opts ...SearchOption) ([]Candidate, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if len(query) != f.store.Dim() {
		return nil, &ErrDimensionMismatch{Expected: f.store.Dim(), Actual: len(query)}
	}

	var so searchOptions
	for _, opt := range opts {
		opt(&so)
	}

	shards := f.shards(so.filter)
	if len(shards) == 0 {
		return []Candidate{}, nil
	}

	if f.parallelism <= 1 || len(shards) == 1 {
		h := newTopK(k)
		for _, s := range shards {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			f.scan(h, query, s)
		}
		return h.sorted(), nil
	}

	heaps := make([]*topK, len(shards))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.parallelism)
	for i, s := range shards {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			h := newTopK(k)
			f.scan(h, query, s)
			heaps[i] = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := newTopK(k)
	for _, h := range heaps {
		for _, c := range h.items {
			merged.push(c)
		}
	}
	return merged.sorted(), nil
}

// shard is either a contiguous row range or an explicit id list.
type shard struct {
	lo, hi int
	ids    []uint32
}

func (f *Flat) shards(filter *roaring.Bitmap) []shard {
	n := f.store.Count()
	var out []shard

	if filter == nil {
		for lo := 0; lo < n; lo += f.shardSize {
			out = append(out, shard{lo: lo, hi: min(lo+f.shardSize, n)})
		}
		return out
	}

	ids := make([]uint32, 0, min(filter.GetCardinality(), uint64(n)))
	it := filter.Iterator()
	for it.HasNext() {
		id := it.Next()
		if int64(id) >= int64(n) {
			break
		}
		ids = append(ids, id)
	}
	for lo := 0; lo < len(ids); lo += f.shardSize {
		out = append(out, shard{ids: ids[lo:min(lo+f.shardSize, len(ids))]})
	}
	return out
}

func (f *Flat) scan(h *topK, query []float32, s shard) {
	dim := f.store.Dim()
	data := f.store.Flat()

	if s.ids != nil {
		for _, id := range s.ids {
			off := int(id) * dim
			h.push(Candidate{ID: id, Score: distance.Dot(data[off:off+dim], query)})
		}
		return
	}
	for i := s.lo; i < s.hi; i++ {
		off := i * dim
		h.push(Candidate{ID: uint32(i), Score: distance.Dot(data[off:off+dim], query)})
	}
}
