package cli

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clever-documents/internal/adapters/driven/config/file"
	"github.com/custodia-labs/clever-documents/internal/core/domain"
)

type mockIngestService struct {
	mu     sync.Mutex
	reqs   []domain.IngestRequest
	failAt map[string]domain.Stage
}

func (m *mockIngestService) Ingest(_ context.Context, req domain.IngestRequest) (*domain.RunReport, error) {
	m.mu.Lock()
	m.reqs = append(m.reqs, req)
	m.mu.Unlock()

	now := time.Now()
	report := &domain.RunReport{
		RunID:      "run-" + req.DocumentID,
		DocumentID: req.DocumentID,
		State:      domain.StageComplete,
		ChunkCount: len(req.Data)/10 + 1,
		StartedAt:  now,
		FinishedAt: now,
	}
	if stage, ok := m.failAt[req.DocumentID]; ok {
		err := &domain.StageError{Stage: stage, Err: domain.ErrEmbeddingServiceUnavailable}
		report.State = domain.StageFailed
		report.FailedStage = stage
		report.Err = err.Err
		return report, err
	}
	return report, nil
}

func (m *mockIngestService) IngestMany(
	ctx context.Context, reqs []domain.IngestRequest, _ int,
) ([]*domain.RunReport, error) {
	reports := make([]*domain.RunReport, len(reqs))
	var errs []error
	for i, r := range reqs {
		var err error
		reports[i], err = m.Ingest(ctx, r)
		errs = append(errs, err)
	}
	return reports, errors.Join(errs...)
}

type mockSearchService struct {
	hits    []domain.SearchHit
	err     error
	queries []string
	options domain.SearchOptions
}

func (m *mockSearchService) Search(_ context.Context, query string, opts domain.SearchOptions) ([]domain.SearchHit, error) {
	m.queries = append(m.queries, query)
	m.options = opts
	return m.hits, m.err
}

type mockDocumentService struct {
	docs    []domain.DocumentMetadata
	content map[string][]byte
	deleted []string
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.DocumentMetadata, error) {
	return m.docs, nil
}

func (m *mockDocumentService) Get(_ context.Context, id string) (*domain.DocumentMetadata, error) {
	for i := range m.docs {
		if m.docs[i].ID == id {
			return &m.docs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) Content(_ context.Context, id string) ([]byte, error) {
	data, ok := m.content[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (m *mockDocumentService) Delete(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type testServices struct {
	ingest   *mockIngestService
	search   *mockSearchService
	document *mockDocumentService
}

// setupTestServices installs mocks and a temporary config file.
func setupTestServices(t *testing.T) *testServices {
	t.Helper()

	store, err := file.NewConfigStore(t.TempDir())
	require.NoError(t, err)

	ts := &testServices{
		ingest: &mockIngestService{},
		search: &mockSearchService{},
		document: &mockDocumentService{
			docs: []domain.DocumentMetadata{{
				ID: "guide", Filename: "guide.md", ContentType: "text/markdown",
				ChunkCount: 3, Tags: []string{"api", "technical section"}, Location: "file:///tmp/guide",
			}},
			content: map[string][]byte{"guide": []byte("# Guide\n")},
		},
	}

	configStore = store
	ingestService = ts.ingest
	searchService = ts.search
	documentService = ts.document

	t.Cleanup(func() {
		configStore = nil
		appConfig = nil
		ingestService, searchService, documentService = nil, nil, nil
		closeServices = nil
		serviceFactory = nil
		resetFlags()
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	return ts
}

func resetFlags() {
	verbose, configPath, overrides = false, "", nil
	ingestID, ingestTags, ingestParallel, ingestWatch, ingestJSON = "", "", 0, false, false
	searchQuery, searchLimit, searchTags = "", domain.DefaultTopK, ""
	searchMode, searchJSON, searchInteractive = string(domain.SearchModeSemantic), false, false
	documentJSON = false
}

// execute runs the root command and returns everything it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}
