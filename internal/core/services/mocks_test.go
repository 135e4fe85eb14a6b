package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
)

// mockBlobStore keeps blobs in memory under "mem://<id>".
type mockBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
	err   error
}

func newMockBlobStore() *mockBlobStore {
	return &mockBlobStore{blobs: make(map[string][]byte)}
}

func (m *mockBlobStore) Put(_ context.Context, id string, data []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	loc := "mem://" + id
	m.blobs[loc] = append([]byte(nil), data...)
	return loc, nil
}

func (m *mockBlobStore) Get(_ context.Context, loc string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[loc]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

// mockMetadataStore is a map-backed MetadataStore.
type mockMetadataStore struct {
	mu        sync.Mutex
	rows      map[string]domain.DocumentMetadata
	upsertErr error
	getErr    error
}

func newMockMetadataStore() *mockMetadataStore {
	return &mockMetadataStore{rows: make(map[string]domain.DocumentMetadata)}
}

func (m *mockMetadataStore) Upsert(_ context.Context, meta domain.DocumentMetadata) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[meta.ID] = meta
	return nil
}

func (m *mockMetadataStore) Get(_ context.Context, id string) (*domain.DocumentMetadata, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &row, nil
}

func (m *mockMetadataStore) List(_ context.Context) ([]domain.DocumentMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.DocumentMetadata, 0, len(m.rows))
	for _, row := range m.rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockMetadataStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *mockMetadataStore) Close() error { return nil }

// mockIndex implements both VectorIndex and KeywordIndex over one map.
// Query ranks by the first vector component, Search by substring match.
type mockIndex struct {
	mu        sync.Mutex
	records   map[string]domain.SearchRecord
	upsertErr error
	// failAfter writes this many records before failing with upsertErr.
	failAfter int
	deletes   []string
	listErr   error
	deleteErr error
}

func newMockIndex() *mockIndex {
	return &mockIndex{records: make(map[string]domain.SearchRecord)}
}

func (m *mockIndex) UpsertRecords(_ context.Context, records []domain.SearchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range records {
		if m.upsertErr != nil && i >= m.failAfter {
			return m.upsertErr
		}
		m.records[r.ID] = r
	}
	return nil
}

func (m *mockIndex) Index(ctx context.Context, records []domain.SearchRecord) error {
	return m.UpsertRecords(ctx, records)
}

func (m *mockIndex) DeleteDocument(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, documentID)
	for id, r := range m.records {
		if r.DocumentID == documentID {
			delete(m.records, id)
		}
	}
	return nil
}

func (m *mockIndex) DeleteRecords(_ context.Context, ids []string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.records, id)
	}
	return nil
}

func (m *mockIndex) RecordIDs(_ context.Context, documentID string) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, r := range m.records {
		if r.DocumentID == documentID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *mockIndex) Query(_ context.Context, vector []float32, tags []string, topK int) ([]domain.SearchHit, error) {
	return m.rank(topK, tags, func(r domain.SearchRecord) (float64, bool) {
		if len(r.Vector) == 0 || len(vector) == 0 {
			return 0, false
		}
		return float64(-abs(r.Vector[0] - vector[0])), true
	}), nil
}

func (m *mockIndex) Search(_ context.Context, query string, tags []string, topK int) ([]domain.SearchHit, error) {
	return m.rank(topK, tags, func(r domain.SearchRecord) (float64, bool) {
		n := strings.Count(r.Text, query)
		return float64(n), n > 0
	}), nil
}

func (m *mockIndex) rank(topK int, tags []string, score func(domain.SearchRecord) (float64, bool)) []domain.SearchHit {
	m.mu.Lock()
	defer m.mu.Unlock()
	var hits []domain.SearchHit
	for _, r := range m.records {
		if !domain.MatchesAnyTag(r.Tags, tags) {
			continue
		}
		if s, ok := score(r); ok {
			hits = append(hits, domain.SearchHit{Record: r, Score: s})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Record.ID < hits[j].Record.ID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

func (m *mockIndex) Close() error { return nil }

func (m *mockIndex) ids() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.records))
	for id := range m.records {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

// mockEmbedder returns {len(text)} for each text, or err.
type mockEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return 1 }
func (m *mockEmbedder) ModelName() string            { return "mock" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
