package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
	"github.com/custodia-labs/clever-documents/internal/core/ports/driven"
	"github.com/custodia-labs/clever-documents/internal/core/ports/driving"
	"github.com/custodia-labs/clever-documents/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService manages ingested documents.
type DocumentService struct {
	metadata driven.MetadataStore
	blobs    driven.BlobStore
	vectors  driven.VectorIndex
	keywords driven.KeywordIndex
}

// NewDocumentService creates a new document service. keywords may be nil.
func NewDocumentService(
	metadata driven.MetadataStore,
	blobs driven.BlobStore,
	vectors driven.VectorIndex,
	keywords driven.KeywordIndex,
) *DocumentService {
	return &DocumentService{
		metadata: metadata,
		blobs:    blobs,
		vectors:  vectors,
		keywords: keywords,
	}
}

// List returns metadata for every ingested document.
func (s *DocumentService) List(ctx context.Context) ([]domain.DocumentMetadata, error) {
	docs, err := s.metadata.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Get returns metadata for one document.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.DocumentMetadata, error) {
	if documentID == "" {
		return nil, fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}
	return s.metadata.Get(ctx, documentID)
}

// Content returns the uploaded bytes through the blob location in metadata.
func (s *DocumentService) Content(ctx context.Context, documentID string) ([]byte, error) {
	meta, err := s.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if meta.Location == "" {
		return nil, fmt.Errorf("%w: no blob location for %s", domain.ErrNotFound, documentID)
	}
	data, err := s.blobs.Get(ctx, meta.Location)
	if err != nil {
		return nil, fmt.Errorf("get blob: %w", err)
	}
	return data, nil
}

// Delete removes the document from every index and drops its metadata.
// The blob is kept so the document can be re-ingested from it.
func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	if documentID == "" {
		return fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}

	if err := s.vectors.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete vector records: %w", err)
	}
	if s.keywords != nil {
		if err := s.keywords.DeleteDocument(ctx, documentID); err != nil {
			return fmt.Errorf("delete keyword records: %w", err)
		}
	}
	if err := s.metadata.Delete(ctx, documentID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete metadata: %w", err)
	}

	logger.Info("document deleted", "document_id", documentID)
	return nil
}
