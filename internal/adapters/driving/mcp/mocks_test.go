package mcp

import (
	"context"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
)

type mockSearchService struct {
	hits    []domain.SearchHit
	err     error
	query   string
	options domain.SearchOptions
}

func (m *mockSearchService) Search(_ context.Context, query string, opts domain.SearchOptions) ([]domain.SearchHit, error) {
	m.query = query
	m.options = opts
	return m.hits, m.err
}

type mockIngestService struct {
	report *domain.RunReport
	err    error
	req    domain.IngestRequest
}

func (m *mockIngestService) Ingest(_ context.Context, req domain.IngestRequest) (*domain.RunReport, error) {
	m.req = req
	return m.report, m.err
}

func (m *mockIngestService) IngestMany(
	ctx context.Context, reqs []domain.IngestRequest, _ int,
) ([]*domain.RunReport, error) {
	reports := make([]*domain.RunReport, len(reqs))
	for i, r := range reqs {
		reports[i], _ = m.Ingest(ctx, r)
	}
	return reports, m.err
}

type mockDocumentService struct {
	docs    []domain.DocumentMetadata
	content map[string][]byte
	err     error
	deleted []string
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.DocumentMetadata, error) {
	return m.docs, m.err
}

func (m *mockDocumentService) Get(_ context.Context, id string) (*domain.DocumentMetadata, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.docs {
		if m.docs[i].ID == id {
			return &m.docs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) Content(_ context.Context, id string) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	data, ok := m.content[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (m *mockDocumentService) Delete(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return m.err
}
