// Package memory provides an in-memory vector index ranked by cosine similarity.
package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/clever-documents/internal/adapters/driven/vector/similarity"
	"github.com/custodia-labs/clever-documents/internal/core/domain"
	"github.com/custodia-labs/clever-documents/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index keeps records in a map and scans them on every query.
type Index struct {
	mu      sync.RWMutex
	records map[string]domain.SearchRecord
}

// New creates an empty index.
func New() *Index {
	return &Index{records: make(map[string]domain.SearchRecord)}
}

// UpsertRecords stores or replaces records by id.
func (x *Index) UpsertRecords(ctx context.Context, records []domain.SearchRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, r := range records {
		r.Tags = domain.CloneTags(r.Tags)
		r.Vector = append([]float32(nil), r.Vector...)
		x.records[r.ID] = r
	}
	return nil
}

// DeleteDocument removes every record of a document.
func (x *Index) DeleteDocument(_ context.Context, documentID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for id, r := range x.records {
		if r.DocumentID == documentID {
			delete(x.records, id)
		}
	}
	return nil
}

// DeleteRecords removes records by id.
func (x *Index) DeleteRecords(_ context.Context, ids []string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, id := range ids {
		delete(x.records, id)
	}
	return nil
}

// RecordIDs lists the ids of every record of a document.
func (x *Index) RecordIDs(_ context.Context, documentID string) ([]string, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	var ids []string
	for id, r := range x.records {
		if r.DocumentID == documentID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Query returns the topK records most similar to vector among those
// carrying any of tags.
func (x *Index) Query(ctx context.Context, vector []float32, tags []string, topK int) ([]domain.SearchHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := similarity.NewQuery(vector)

	x.mu.RLock()
	defer x.mu.RUnlock()
	var hits []domain.SearchHit
	for _, r := range x.records {
		if !domain.MatchesAnyTag(r.Tags, tags) {
			continue
		}
		score, ok := q.Score(r.Vector)
		if !ok {
			continue
		}
		r.Tags = domain.CloneTags(r.Tags)
		hits = append(hits, domain.SearchHit{Record: r, Score: score})
	}
	return similarity.TopK(hits, topK), nil
}

// Len returns the number of stored records.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.records)
}

// Close is a no-op.
func (x *Index) Close() error {
	return nil
}
