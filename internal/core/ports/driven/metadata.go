package driven

import (
	"context"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
)

// MetadataStore keeps one bookkeeping row per document.
// The pipeline treats writes as fire-and-forget.
type MetadataStore interface {
	// Upsert inserts or overwrites the row keyed by meta.ID.
	Upsert(ctx context.Context, meta domain.DocumentMetadata) error

	// Get returns the row for a document, or domain.ErrNotFound.
	Get(ctx context.Context, documentID string) (*domain.DocumentMetadata, error)

	// List returns all rows, most recently uploaded first.
	List(ctx context.Context) ([]domain.DocumentMetadata, error)

	// Delete removes the row. Deleting a missing row is not an error.
	Delete(ctx context.Context, documentID string) error

	// Close releases resources.
	Close() error
}
