package driving

import (
	"context"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
)

// IngestService runs documents through upload, chunk, embed and index.
type IngestService interface {
	// Ingest processes one document. On failure the returned error is a
	// *domain.StageError and the report state is domain.StageFailed.
	Ingest(ctx context.Context, req domain.IngestRequest) (*domain.RunReport, error)

	// IngestMany processes independent documents concurrently, at most
	// parallel at a time. Reports are returned in request order.
	IngestMany(ctx context.Context, reqs []domain.IngestRequest, parallel int) ([]*domain.RunReport, error)
}
