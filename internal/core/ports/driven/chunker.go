package driven

import (
	"context"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
)

// Chunker splits a document into ordered chunks with stable ids.
type Chunker interface {
	// Name returns the chunker name for logging and configuration.
	Name() string

	// Process returns the chunks of doc. Empty content yields no chunks.
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
