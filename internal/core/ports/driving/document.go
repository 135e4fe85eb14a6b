package driving

import (
	"context"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
)

// DocumentService manages ingested documents.
type DocumentService interface {
	// List returns metadata for every ingested document.
	List(ctx context.Context) ([]domain.DocumentMetadata, error)

	// Get returns metadata for one document.
	Get(ctx context.Context, documentID string) (*domain.DocumentMetadata, error)

	// Content returns the uploaded bytes of a document.
	Content(ctx context.Context, documentID string) ([]byte, error)

	// Delete removes a document's records from every index and its metadata.
	Delete(ctx context.Context, documentID string) error
}
