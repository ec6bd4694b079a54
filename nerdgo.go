package nerdgo

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/nerdgo/blobstore"
	"github.com/hupe1980/nerdgo/catalog"
	"github.com/hupe1980/nerdgo/config"
	"github.com/hupe1980/nerdgo/embedding"
	"github.com/hupe1980/nerdgo/index"
	"github.com/hupe1980/nerdgo/internal/manifest"
	"github.com/hupe1980/nerdgo/internal/resource"
	"github.com/hupe1980/nerdgo/merge"
)

// Prediction is one scored candidate entity.
type Prediction struct {
	EntityID        catalog.ID `json:"entity_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Types           []string   `json:"types"`
	WikipediaPageID string     `json:"wikipedia_page_id,omitempty"`
	KBID            string     `json:"kb_id,omitempty"`
	Score           float32    `json:"score"`
	Probability     float64    `json:"probability"`
}

// GenerationInfo describes the published generation a service serves.
type GenerationInfo struct {
	ID        uint64    `json:"id"`
	Parent    uint64    `json:"parent"`
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	Dim       int       `json:"dim"`
	Count     uint64    `json:"count"`
	Layout    string    `json:"layout"`
}

func generationInfo(m *manifest.Manifest) GenerationInfo {
	return GenerationInfo{
		ID:        m.ID,
		Parent:    m.Parent,
		RunID:     m.RunID.String(),
		CreatedAt: m.CreatedAt,
		Dim:       m.Dim,
		Count:     m.Count,
		Layout:    m.Layout,
	}
}

// Service answers predictions over one (store, catalog) pair.
type Service struct {
	cfg        config.Config
	store      *embedding.Store
	catalog    *catalog.Catalog
	index      index.Index
	generation *manifest.Manifest

	rc      *resource.Controller
	metrics MetricsCollector
	logger  *Logger

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Init loads a (store, catalog) pair and returns a service over it.
//
// With WithBlobStore the pair is the published generation of the blob store.
// Otherwise it is read from cfg.EmbeddingsPath and cfg.CatalogPath.
func Init(ctx context.Context, cfg config.Config, optFns ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := applyOptions(optFns)

	start := time.Now()
	store, cat, gen, source, err := load(ctx, cfg, opts)
	opts.metricsCollector.RecordLoad(countOf(store), time.Since(start), err)
	opts.logger.LogLoad(ctx, source, countOf(store), err)
	if err != nil {
		return nil, translateError(err)
	}

	svc, err := newService(store, cat, cfg, opts)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	svc.generation = gen
	return svc, nil
}

// New returns a service over an already built pair. The service takes
// ownership of store and closes it on Close.
func New(store *embedding.Store, cat *catalog.Catalog, cfg config.Config, optFns ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newService(store, cat, cfg, applyOptions(optFns))
}

func newService(store *embedding.Store, cat *catalog.Catalog, cfg config.Config, opts options) (*Service, error) {
	if store.Dim() != cfg.Dim {
		return nil, &ErrDimensionMismatch{Expected: cfg.Dim, Actual: store.Dim()}
	}
	if err := merge.CheckPairing(store, cat); err != nil {
		return nil, translateError(err)
	}

	parallelism := cfg.Parallelism
	if opts.parallelism != 0 {
		parallelism = opts.parallelism
	}
	indexOpts := []index.Option{index.WithParallelism(parallelism)}
	if opts.shardSize > 0 {
		indexOpts = append(indexOpts, index.WithShardSize(opts.shardSize))
	}

	maxPredicts := cfg.MaxConcurrentPredicts
	if opts.maxConcurrentPredicts > 0 {
		maxPredicts = opts.maxConcurrentPredicts
	}

	return &Service{
		cfg:     cfg,
		store:   store,
		catalog: cat,
		index:   index.Build(store, indexOpts...),
		rc: resource.NewController(resource.Config{
			MaxConcurrentRequests: int64(maxPredicts),
		}),
		metrics: opts.metricsCollector,
		logger:  opts.logger.WithDimension(cfg.Dim),
	}, nil
}

func load(ctx context.Context, cfg config.Config, opts options) (*embedding.Store, *catalog.Catalog, *manifest.Manifest, string, error) {
	if opts.blobStore != nil {
		return loadGeneration(ctx, cfg, opts.blobStore, opts.generation)
	}

	source := cfg.EmbeddingsPath
	if cfg.EmbeddingsPath == "" || cfg.CatalogPath == "" {
		return nil, nil, nil, source, errors.New("nerdgo: embeddings_path and catalog_path are required without a blob store")
	}
	store, err := embedding.Load(cfg.EmbeddingsPath, cfg.Dim)
	if err != nil {
		return nil, nil, nil, source, err
	}
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		_ = store.Close()
		return nil, nil, nil, source, err
	}
	return store, cat, nil, source, nil
}

func loadGeneration(ctx context.Context, cfg config.Config, bs blobstore.BlobStore, id uint64) (*embedding.Store, *catalog.Catalog, *manifest.Manifest, string, error) {
	m, err := manifest.NewStore(bs).LoadVersion(ctx, id)
	if err != nil {
		return nil, nil, nil, manifest.CurrentFileName, err
	}
	source := manifest.FileName(m.ID)
	if m.Dim != cfg.Dim {
		return nil, nil, nil, source, &embedding.ErrDimensionMismatch{Expected: cfg.Dim, Actual: m.Dim}
	}

	store, err := embedding.Open(ctx, bs, m.EmbeddingsPath, m.Dim)
	if err != nil {
		return nil, nil, nil, source, err
	}
	if uint64(store.Count()) != m.Count || store.Checksum() != m.EmbeddingsCRC {
		_ = store.Close()
		return nil, nil, nil, source, fmt.Errorf("%w: %s does not match generation %d", manifest.ErrCorrupt, m.EmbeddingsPath, m.ID)
	}
	cat, err := catalog.Read(ctx, bs, m.CatalogPath)
	if err != nil {
		_ = store.Close()
		return nil, nil, nil, source, err
	}
	return store, cat, m, source, nil
}

func countOf(s *embedding.Store) int {
	if s == nil {
		return 0
	}
	return s.Count()
}

// Predict returns the k entities whose embeddings score highest against
// query, with a temperature softmax over their scores. k <= 0 uses the
// configured top-k.
//
// An index hit without a catalog record fails with ErrConsistency.
func (s *Service) Predict(ctx context.Context, query []float32, k int, optFns ...PredictOption) (preds []Prediction, err error) {
	if k <= 0 {
		k = s.cfg.TopK
	}

	start := time.Now()
	defer func() {
		s.metrics.RecordPredict(k, len(preds), time.Since(start), err)
		s.logger.LogPredict(ctx, k, len(preds), err)
	}()

	if s.closed.Load() {
		return nil, ErrClosed
	}
	if err := s.rc.AcquireRequest(ctx); err != nil {
		return nil, err
	}
	defer s.rc.ReleaseRequest()

	var po predictOptions
	for _, fn := range optFns {
		fn(&po)
	}
	var searchOpts []index.SearchOption
	if len(po.types) > 0 {
		searchOpts = append(searchOpts, index.WithFilter(s.catalog.Filter(po.types...)))
	}

	candidates, err := s.index.Search(ctx, query, k, searchOpts...)
	if err != nil {
		return nil, translateError(err)
	}

	scores := make([]float32, len(candidates))
	for i, c := range candidates {
		scores[i] = c.Score
	}
	probs := Softmax(scores, s.cfg.Temperature)

	preds = make([]Prediction, len(candidates))
	for i, c := range candidates {
		rec, err := s.catalog.Get(c.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: index returned entity %d: %w", ErrConsistency, c.ID, err)
		}
		preds[i] = Prediction{
			EntityID:        rec.ID,
			Title:           rec.Title,
			Description:     rec.Description,
			Types:           slices.Clone(rec.Types),
			WikipediaPageID: rec.WikipediaPageID,
			KBID:            rec.KBID,
			Score:           c.Score,
			Probability:     probs[i],
		}
	}
	return preds, nil
}

// Len returns the number of entities served.
func (s *Service) Len() int { return s.store.Count() }

// Dim returns the embedding width.
func (s *Service) Dim() int { return s.store.Dim() }

// Config returns the service configuration.
func (s *Service) Config() config.Config { return s.cfg }

// Generation describes the served generation. ok is false when the pair was
// loaded from files or passed to New.
func (s *Service) Generation() (info GenerationInfo, ok bool) {
	if s.generation == nil {
		return GenerationInfo{}, false
	}
	return generationInfo(s.generation), true
}

// Entity returns the catalog record for id.
func (s *Service) Entity(id catalog.ID) (catalog.Record, error) {
	return s.catalog.Get(id)
}

// Close releases the store. Predictions in flight must finish first.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.store.Close()
	})
	return s.closeErr
}
