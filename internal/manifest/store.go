package manifest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/hupe1980/e57go/blobstore"
	"github.com/hupe1980/e57go/codec"
)

// Store manages manifest blobs and the CURRENT pointer.
type Store struct {
	store blobstore.BlobStore
	mu    sync.Mutex
}

// NewStore creates a new manifest store.
func NewStore(store blobstore.BlobStore) *Store {
	return &Store{store: store}
}

// Load loads the committed manifest.
func (s *Store) Load(ctx context.Context) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := blobstore.ReadAll(ctx, s.store, CurrentFileName)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	name := strings.TrimSpace(string(current))
	if !strings.HasPrefix(name, Dir) {
		return nil, fmt.Errorf("%w: CURRENT points at %q", ErrCorrupt, name)
	}
	return s.load(ctx, name)
}

// LoadFrom loads the manifest blob name regardless of CURRENT.
func (s *Store) LoadFrom(ctx context.Context, name string) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, name)
}

func (s *Store) load(ctx context.Context, name string) (*Manifest, error) {
	data, err := blobstore.ReadAll(ctx, s.store, name)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest %s: %w", name, err)
	}
	codecName, doc, err := open(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", name, err)
	}
	c, ok := codec.ByName(codecName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, codecName)
	}

	m := &Manifest{}
	if err := c.Unmarshal(doc, m); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, name, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Save writes m to a fresh blob and then swaps CURRENT to it.
// It returns the name of the new manifest blob.
func (s *Store) Save(ctx context.Context, m *Manifest, c codec.Codec) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c == nil {
		c = codec.Default
	}
	m.Version = CurrentVersion

	doc, err := c.Marshal(m)
	if err != nil {
		return "", err
	}
	data, err := seal(c.Name(), doc)
	if err != nil {
		return "", err
	}

	name := Dir + uuid.NewString() + ".json"
	if err := s.store.Put(ctx, name, data); err != nil {
		return "", err
	}
	if err := s.store.Put(ctx, CurrentFileName, []byte(name)); err != nil {
		return "", errors.Join(err, s.store.Delete(ctx, name))
	}
	return name, nil
}

// List returns the names of all manifest blobs, committed or not.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.store.List(ctx, Dir)
	if err != nil {
		return nil, err
	}
	out := names[:0]
	for _, n := range names {
		if strings.HasSuffix(n, ".json") {
			out = append(out, n)
		}
	}
	return out, nil
}
