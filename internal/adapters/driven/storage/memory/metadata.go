// Package memory provides in-memory store implementations for tests and
// throwaway runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
	"github.com/custodia-labs/clever-documents/internal/core/ports/driven"
)

// Ensure MetadataStore implements the interface.
var _ driven.MetadataStore = (*MetadataStore)(nil)

// MetadataStore is an in-memory implementation of driven.MetadataStore.
type MetadataStore struct {
	mu   sync.RWMutex
	docs map[string]domain.DocumentMetadata
}

// NewMetadataStore creates a new in-memory metadata store.
func NewMetadataStore() *MetadataStore {
	return &MetadataStore{docs: make(map[string]domain.DocumentMetadata)}
}

// Upsert stores or replaces a document's metadata.
func (s *MetadataStore) Upsert(_ context.Context, meta domain.DocumentMetadata) error {
	meta.Tags = domain.CloneTags(meta.Tags)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[meta.ID] = meta
	return nil
}

// Get retrieves metadata by document ID.
func (s *MetadataStore) Get(_ context.Context, id string) (*domain.DocumentMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok := s.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	meta.Tags = domain.CloneTags(meta.Tags)
	return &meta, nil
}

// List returns all metadata ordered by document ID.
func (s *MetadataStore) List(_ context.Context) ([]domain.DocumentMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.DocumentMetadata, 0, len(s.docs))
	for _, meta := range s.docs {
		meta.Tags = domain.CloneTags(meta.Tags)
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Delete removes a document's metadata.
func (s *MetadataStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}

// Close is a no-op.
func (s *MetadataStore) Close() error {
	return nil
}
