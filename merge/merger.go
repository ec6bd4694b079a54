package merge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/hupe1980/nerdgo/blobstore"
	"github.com/hupe1980/nerdgo/catalog"
	"github.com/hupe1980/nerdgo/codec"
	"github.com/hupe1980/nerdgo/embedding"
	"github.com/hupe1980/nerdgo/internal/manifest"
	"github.com/hupe1980/nerdgo/internal/resource"
)

// Observer receives the outcome of every merge run.
type Observer interface {
	RecordMerge(added, total int, d time.Duration, err error)
}

// Option configures a Merger.
type Option func(*Merger)

// WithDim sets the width used when nothing has been published yet.
func WithDim(dim int) Option {
	return func(m *Merger) { m.dim = dim }
}

// WithLayout sets the layout of newly written embedding matrices.
func WithLayout(l embedding.Layout) Option {
	return func(m *Merger) { m.layout = l }
}

// WithCatalogCodec sets the codec used for catalog snapshots.
func WithCatalogCodec(c codec.Codec) Option {
	return func(m *Merger) { m.codec = c }
}

// WithCatalogCompression sets the compression used for catalog snapshots.
func WithCatalogCompression(c catalog.Compression) Option {
	return func(m *Merger) { m.compression = c }
}

// WithResourceController bounds memory, background jobs and write throughput.
func WithResourceController(rc *resource.Controller) Option {
	return func(m *Merger) { m.rc = rc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Merger) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithObserver registers an observer for merge outcomes.
func WithObserver(o Observer) Option {
	return func(m *Merger) { m.observer = o }
}

// Merger publishes merged generations to a blob store.
type Merger struct {
	mu sync.Mutex

	bs        blobstore.BlobStore
	manifests *manifest.Store

	dim         int
	layout      embedding.Layout
	codec       codec.Codec
	compression catalog.Compression
	rc          *resource.Controller
	logger      *slog.Logger
	observer    Observer
}

// NewMerger returns a merger writing generation blobs to bs and publishing
// them through ms. The two usually share a backing store.
func NewMerger(bs blobstore.BlobStore, ms *manifest.Store, opts ...Option) *Merger {
	m := &Merger{
		bs:          bs,
		manifests:   ms,
		layout:      embedding.LayoutRaw,
		codec:       codec.Default,
		compression: catalog.CompressionNone,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run appends batch to the current generation and publishes the result as a
// new generation. On error the current generation is unchanged and any blobs
// written by the run are removed.
func (m *Merger) Run(ctx context.Context, batch *Batch) (*manifest.Manifest, error) {
	start := time.Now()
	next, total, err := m.run(ctx, batch)
	elapsed := time.Since(start)

	if m.observer != nil {
		m.observer.RecordMerge(batch.Len(), total, elapsed, err)
	}
	if err != nil {
		m.logger.ErrorContext(ctx, "merge failed",
			"added", batch.Len(), "duration", elapsed, "error", err)
		return nil, err
	}
	m.logger.InfoContext(ctx, "merge published",
		"generation", next.ID, "parent", next.Parent, "run_id", next.RunID.String(),
		"added", batch.Len(), "total", total, "duration", elapsed)
	return next, nil
}

func (m *Merger) run(ctx context.Context, batch *Batch) (*manifest.Manifest, int, error) {
	if err := m.rc.AcquireBackground(ctx); err != nil {
		return nil, 0, err
	}
	defer m.rc.ReleaseBackground()

	m.mu.Lock()
	defer m.mu.Unlock()

	base, store, cat, err := m.loadBase(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer store.Close()

	need := store.SizeBytes() + int64(batch.Len()*batch.Dim*4)
	if err := m.rc.AcquireMemory(need); err != nil {
		return nil, 0, fmt.Errorf("merge: reserve %d bytes: %w", need, err)
	}
	defer m.rc.ReleaseMemory(need)

	res, err := Merge(store, cat, batch)
	if err != nil {
		return nil, 0, err
	}

	id, err := m.manifests.NextID(ctx)
	if err != nil {
		return nil, 0, err
	}
	next := base.Next()
	next.ID = id
	next.Dim = res.Store.Dim()
	next.Count = uint64(res.Store.Count())
	next.Layout = m.layout.String()
	next.EmbeddingsPath = manifest.EmbeddingsFileName(id, next.RunID)
	next.EmbeddingsCRC = res.Store.Checksum()
	next.CatalogPath = manifest.CatalogFileName(id, next.RunID)

	if err := m.publish(ctx, next, res); err != nil {
		m.cleanup(ctx, next)
		return nil, 0, err
	}
	return next, res.Store.Count(), nil
}

// loadBase returns the current generation, or an empty one when nothing has
// been published.
func (m *Merger) loadBase(ctx context.Context) (*manifest.Manifest, *embedding.Store, *catalog.Catalog, error) {
	base, err := m.manifests.Load(ctx)
	if errors.Is(err, manifest.ErrNotFound) {
		if m.dim <= 0 {
			return nil, nil, nil, fmt.Errorf("merge: nothing published and no dimension configured: %w", embedding.ErrInvalidDim)
		}
		store, err := embedding.New(m.dim)
		if err != nil {
			return nil, nil, nil, err
		}
		return manifest.New(m.dim), store, catalog.New(), nil
	}
	if err != nil {
		return nil, nil, nil, err
	}

	store, err := embedding.Open(ctx, m.bs, base.EmbeddingsPath, base.Dim)
	if err != nil {
		return nil, nil, nil, err
	}
	cat, err := catalog.Read(ctx, m.bs, base.CatalogPath)
	if err != nil {
		_ = store.Close()
		return nil, nil, nil, err
	}

	switch {
	case uint64(store.Count()) != base.Count:
		err = fmt.Errorf("%w: generation %d lists %d rows, %s has %d",
			manifest.ErrCorrupt, base.ID, base.Count, base.EmbeddingsPath, store.Count())
	case store.Checksum() != base.EmbeddingsCRC:
		err = fmt.Errorf("%w: checksum mismatch for %s", manifest.ErrCorrupt, base.EmbeddingsPath)
	default:
		err = CheckPairing(store, cat)
	}
	if err != nil {
		_ = store.Close()
		return nil, nil, nil, err
	}
	return base, store, cat, nil
}

func (m *Merger) publish(ctx context.Context, next *manifest.Manifest, res *Result) error {
	w, err := m.bs.Create(ctx, next.EmbeddingsPath)
	if err != nil {
		return err
	}
	if err := embedding.Encode(&throttledWriter{ctx: ctx, w: w, rc: m.rc}, res.Store, m.layout); err != nil {
		_ = w.Abort()
		return fmt.Errorf("merge: write %s: %w", next.EmbeddingsPath, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("merge: write %s: %w", next.EmbeddingsPath, err)
	}

	var buf bytes.Buffer
	if err := catalog.Encode(&buf, res.Catalog,
		catalog.WithCodec(m.codec), catalog.WithCompression(m.compression)); err != nil {
		return err
	}
	if err := m.rc.AcquireIO(ctx, buf.Len()); err != nil {
		return err
	}
	if err := m.bs.Put(ctx, next.CatalogPath, buf.Bytes()); err != nil {
		return fmt.Errorf("merge: write %s: %w", next.CatalogPath, err)
	}

	return m.manifests.Save(ctx, next)
}

// cleanup removes the blobs written by a run whose generation was not
// published. The names carry the run ID, so only this run's blobs are touched.
func (m *Merger) cleanup(ctx context.Context, next *manifest.Manifest) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	published, err := m.manifests.IsCurrent(ctx, next.ID, next.RunID)
	if err != nil || published {
		m.logger.Warn("keeping blobs of possibly published generation",
			"generation", next.ID, "run_id", next.RunID.String(), "error", err)
		return
	}
	for _, name := range []string{next.EmbeddingsPath, next.CatalogPath} {
		if err := m.bs.Delete(ctx, name); err != nil {
			m.logger.Warn("cleanup failed", "blob", name, "error", err)
		}
	}
}

// Prune deletes all generations older than the newest keep ones, except the
// current generation. It returns the IDs it removed.
func (m *Merger) Prune(ctx context.Context, keep int) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keep = max(keep, 1)
	versions, err := m.manifests.ListVersions(ctx)
	if err != nil {
		return nil, err
	}
	current, err := m.manifests.Load(ctx)
	if err != nil && !errors.Is(err, manifest.ErrNotFound) {
		return nil, err
	}

	var removed []uint64
	for i := 0; i < len(versions)-keep; i++ {
		v := versions[i]
		if current != nil && v.ID == current.ID {
			continue
		}
		for _, name := range []string{v.EmbeddingsPath, v.CatalogPath} {
			if err := m.bs.Delete(ctx, name); err != nil {
				return removed, err
			}
		}
		if err := m.manifests.DeleteVersion(ctx, v.ID); err != nil {
			return removed, err
		}
		removed = append(removed, v.ID)
	}
	if len(removed) > 0 {
		m.logger.InfoContext(ctx, "pruned generations", "removed", removed)
	}
	return removed, nil
}

// throttledWriter charges every write against the IO budget.
type throttledWriter struct {
	ctx context.Context
	w   io.Writer
	rc  *resource.Controller
}

const throttleChunk = 1 << 20

func (t *throttledWriter) Write(p []byte) (int, error) {
	var n int
	for len(p) > 0 {
		chunk := p[:min(len(p), throttleChunk)]
		if err := t.rc.AcquireIO(t.ctx, len(chunk)); err != nil {
			return n, err
		}
		w, err := t.w.Write(chunk)
		n += w
		if err != nil {
			return n, err
		}
		p = p[len(chunk):]
	}
	return n, nil
}
