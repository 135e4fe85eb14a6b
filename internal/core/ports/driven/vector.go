package driven

import (
	"context"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
)

// VectorIndex stores search records and answers tag-filtered nearest-neighbour queries.
// Writes are upserts keyed by record id.
type VectorIndex interface {
	// UpsertRecords inserts or overwrites records by id.
	UpsertRecords(ctx context.Context, records []domain.SearchRecord) error

	// DeleteDocument removes every record of a document.
	DeleteDocument(ctx context.Context, documentID string) error

	// DeleteRecords removes records by id. Missing ids are ignored.
	DeleteRecords(ctx context.Context, ids []string) error

	// RecordIDs lists the ids of every stored record of a document, in no
	// particular order.
	RecordIDs(ctx context.Context, documentID string) ([]string, error)

	// Query returns up to topK records most similar to vector whose tags
	// contain any of tags. Scores are cosine similarity, highest first.
	Query(ctx context.Context, vector []float32, tags []string, topK int) ([]domain.SearchHit, error)

	// Close releases resources.
	Close() error
}
