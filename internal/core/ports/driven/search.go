package driven

import (
	"context"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
)

// KeywordIndex provides full-text search over the same records as VectorIndex.
// Vectors are ignored.
type KeywordIndex interface {
	// Index adds or overwrites records by id.
	Index(ctx context.Context, records []domain.SearchRecord) error

	// DeleteDocument removes every record of a document.
	DeleteDocument(ctx context.Context, documentID string) error

	// DeleteRecords removes records by id.
	DeleteRecords(ctx context.Context, ids []string) error

	// RecordIDs lists the ids of every indexed record of a document.
	RecordIDs(ctx context.Context, documentID string) ([]string, error)

	// Search returns up to topK records matching query whose tags contain any of tags.
	Search(ctx context.Context, query string, tags []string, topK int) ([]domain.SearchHit, error)

	// Close releases resources.
	Close() error
}
