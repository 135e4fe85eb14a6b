package driving

import (
	"context"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
)

// SearchService provides search capabilities to external actors.
type SearchService interface {
	// Search returns records ranked against query, filtered by opts.Tags.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchHit, error)
}
