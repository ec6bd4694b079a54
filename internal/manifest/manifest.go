package manifest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/nerdgo/blobstore"
)

const (
	ManifestFileName = "MANIFEST"
	CurrentFileName  = "CURRENT"
	// CurrentVersion is the version of the manifest format.
	CurrentVersion = 1
)

// Embedding matrix layouts.
const (
	LayoutRaw    = "raw"
	LayoutHeader = "header"
)

// Manifest describes one published generation.
type Manifest struct {
	Version        int       `json:"version"`
	ID             uint64    `json:"id"`
	Parent         uint64    `json:"parent"`
	CreatedAt      time.Time `json:"created_at"`
	RunID          uuid.UUID `json:"run_id"`
	Dim            int       `json:"dim"`
	Count          uint64    `json:"count"`
	Layout         string    `json:"layout"`
	EmbeddingsPath string    `json:"embeddings_path"`
	EmbeddingsCRC  uint32    `json:"embeddings_crc"`
	CatalogPath    string    `json:"catalog_path"`
}

// New returns the manifest of the empty generation 0.
func New(dim int) *Manifest {
	return &Manifest{
		Version: CurrentVersion,
		Dim:     dim,
		Layout:  LayoutRaw,
	}
}

// Next returns a manifest for the generation following m with a fresh run ID.
// Paths and counts are left for the caller to fill in.
func (m *Manifest) Next() *Manifest {
	return &Manifest{
		Version:   CurrentVersion,
		ID:        m.ID + 1,
		Parent:    m.ID,
		CreatedAt: time.Now().UTC(),
		RunID:     uuid.New(),
		Dim:       m.Dim,
		Layout:    m.Layout,
	}
}

// IsEmpty reports whether m describes the empty generation.
func (m *Manifest) IsEmpty() bool {
	return m.ID == 0
}

// FileName returns the blob name of the manifest with the given ID.
func FileName(id uint64) string {
	return fmt.Sprintf("%s-%06d.bin", ManifestFileName, id)
}

// EmbeddingsFileName returns the blob name of the embedding matrix written by
// run for generation id. Two runs racing for the same id never share a name.
func EmbeddingsFileName(id uint64, run uuid.UUID) string {
	return fmt.Sprintf("embeddings-%06d-%s.f32", id, run)
}

// CatalogFileName returns the blob name of the catalog snapshot written by run
// for generation id.
func CatalogFileName(id uint64, run uuid.UUID) string {
	return fmt.Sprintf("catalog-%06d-%s.snap", id, run)
}

// Store manages manifests in a blob store.
type Store struct {
	store blobstore.BlobStore
	mu    sync.Mutex
}

// NewStore creates a new manifest store.
func NewStore(store blobstore.BlobStore) *Store {
	return &Store{store: store}
}

// Load loads the current manifest. It returns ErrNotFound when nothing has
// been published yet.
func (s *Store) Load(ctx context.Context) (*Manifest, error) {
	return s.LoadVersion(ctx, 0)
}

// LoadVersion loads a specific version ID. 0 means latest.
func (s *Store) LoadVersion(ctx context.Context, versionID uint64) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := FileName(versionID)
	if versionID == 0 {
		current, err := s.current(ctx)
		if err != nil {
			return nil, err
		}
		name = current
	}
	return s.read(ctx, name)
}

func (s *Store) current(ctx context.Context) (string, error) {
	data, err := blobstore.Get(ctx, s.store, CurrentFileName)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *Store) read(ctx context.Context, name string) (*Manifest, error) {
	data, err := blobstore.Get(ctx, s.store, name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("manifest: open %s: %w", name, err)
	}
	m, err := ReadBinary(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", name, err)
	}
	return m, nil
}

// ListVersions returns all readable manifests in ascending ID order.
// Corrupted or unreadable manifests are skipped.
func (s *Store) ListVersions(ctx context.Context) ([]*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.store.List(ctx, ManifestFileName+"-")
	if err != nil {
		return nil, err
	}

	var manifests []*Manifest
	for _, f := range files {
		if !strings.HasSuffix(f, ".bin") {
			continue
		}
		m, err := s.read(ctx, f)
		if err != nil {
			continue
		}
		manifests = append(manifests, m)
	}
	sort.Slice(manifests, func(i, j int) bool { return manifests[i].ID < manifests[j].ID })
	return manifests, nil
}

// Save writes m and makes it current.
//
// m.Parent must name the generation that is current at the time of the call
// (0 when nothing is published) and m.ID must not be taken; otherwise Save
// fails with ErrConflict and CURRENT is left untouched. If CURRENT cannot be
// written, the manifest written for m is removed again.
func (s *Store) Save(ctx context.Context, m *Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == 0 {
		return fmt.Errorf("%w: generation 0 cannot be published", ErrConflict)
	}

	current, err := s.current(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
		if m.Parent != 0 {
			return fmt.Errorf("%w: parent %d is not current", ErrConflict, m.Parent)
		}
	case err != nil:
		return err
	case current != FileName(m.Parent):
		return fmt.Errorf("%w: parent %d is not current (%s)", ErrConflict, m.Parent, current)
	}

	filename := FileName(m.ID)
	if b, err := s.store.Open(ctx, filename); err == nil {
		_ = b.Close()
		return fmt.Errorf("%w: %s exists", ErrConflict, filename)
	}

	m.Version = CurrentVersion
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	var buf bytes.Buffer
	if err := m.WriteBinary(&buf); err != nil {
		return err
	}
	if err := s.store.Put(ctx, filename, buf.Bytes()); err != nil {
		return err
	}

	if err := s.store.Put(ctx, CurrentFileName, []byte(filename)); err != nil {
		s.discard(context.WithoutCancel(ctx), filename, m.RunID)
		return err
	}
	return nil
}

// discard deletes an unpublished manifest. It leaves the file alone when
// CURRENT points at it after all or when another run has replaced it.
func (s *Store) discard(ctx context.Context, filename string, run uuid.UUID) {
	if current, err := s.current(ctx); err == nil && current == filename {
		return
	}
	if m, err := s.read(ctx, filename); err != nil || m.RunID != run {
		return
	}
	_ = s.store.Delete(ctx, filename)
}

// IsCurrent reports whether CURRENT points at the manifest published by run
// for generation id.
func (s *Store) IsCurrent(ctx context.Context, id uint64, run uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.current(ctx)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if current != FileName(id) {
		return false, nil
	}
	m, err := s.read(ctx, current)
	if err != nil {
		return false, err
	}
	return m.RunID == run, nil
}

// NextID returns one more than the highest manifest ID in the store.
// It differs from Load().ID+1 after a Rollback.
func (s *Store) NextID(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.store.List(ctx, ManifestFileName+"-")
	if err != nil {
		return 0, err
	}
	var maxID uint64
	for _, f := range files {
		var id uint64
		if _, err := fmt.Sscanf(f, ManifestFileName+"-%d.bin", &id); err != nil {
			continue
		}
		maxID = max(maxID, id)
	}
	return maxID + 1, nil
}

// Rollback makes an existing older manifest current again without rewriting it.
func (s *Store) Rollback(ctx context.Context, versionID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	filename := FileName(versionID)
	if _, err := s.read(ctx, filename); err != nil {
		return err
	}
	return s.store.Put(ctx, CurrentFileName, []byte(filename))
}

// DeleteVersion deletes the manifest file for the given version.
// The blobs it references are not touched.
func (s *Store) DeleteVersion(ctx context.Context, versionID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.Delete(ctx, FileName(versionID))
}
