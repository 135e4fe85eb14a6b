// Package chromem provides a vector index on chromem-go, optionally
// persisted to a directory.
package chromem

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/philippgille/chromem-go"

	"github.com/custodia-labs/clever-documents/internal/adapters/driven/vector/similarity"
	"github.com/custodia-labs/clever-documents/internal/core/domain"
	"github.com/custodia-labs/clever-documents/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// DefaultCollection names the collection when none is configured.
const DefaultCollection = "records"

// Metadata keys. Each tag also gets its own "tag:<name>" key so the
// exact-match where filter of chromem can select on it.
const (
	keyDocumentID = "document_id"
	keyTags       = "tags"
	tagPrefix     = "tag:"
)

// Index stores records as chromem documents.
type Index struct {
	col *chromem.Collection
}

// New opens collection in db.
func New(db *chromem.DB, collection string) (*Index, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	// Vectors always arrive precomputed, so no embedding func is needed.
	col, err := db.GetOrCreateCollection(collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: open chromem collection: %w", domain.ErrStorageUnavailable, err)
	}
	return &Index{col: col}, nil
}

// NewPersistent opens a chromem database stored under dir.
func NewPersistent(dir, collection string) (*Index, error) {
	db, err := chromem.NewPersistentDB(dir, true)
	if err != nil {
		return nil, fmt.Errorf("%w: open chromem db: %w", domain.ErrStorageUnavailable, err)
	}
	return New(db, collection)
}

// UpsertRecords adds records, replacing any with the same id.
func (x *Index) UpsertRecords(ctx context.Context, records []domain.SearchRecord) error {
	if len(records) == 0 {
		return nil
	}
	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		doc, err := toDocument(r)
		if err != nil {
			return err
		}
		docs[i] = doc
	}
	if err := x.col.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("add chromem documents: %w", err)
	}
	return nil
}

// DeleteDocument removes every record of a document.
func (x *Index) DeleteDocument(ctx context.Context, documentID string) error {
	if x.col.Count() == 0 {
		return nil
	}
	if err := x.col.Delete(ctx, map[string]string{keyDocumentID: documentID}, nil); err != nil {
		return fmt.Errorf("delete chromem document: %w", err)
	}
	return nil
}

// DeleteRecords removes records by id.
func (x *Index) DeleteRecords(ctx context.Context, ids []string) error {
	if len(ids) == 0 || x.col.Count() == 0 {
		return nil
	}
	if err := x.col.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("delete chromem records: %w", err)
	}
	return nil
}

// RecordIDs lists the ids of every record of a document. Chromem cannot
// list, so this queries with the chunk 0 embedding under a document id
// filter wide enough to return every match.
func (x *Index) RecordIDs(ctx context.Context, documentID string) ([]string, error) {
	n := x.col.Count()
	if n == 0 {
		return nil, nil
	}
	seed, err := x.col.GetByID(ctx, domain.ComposeChunkID(documentID, 0))
	if err != nil {
		// Every stored document starts at chunk 0.
		return nil, nil
	}
	results, err := x.col.QueryEmbedding(ctx, seed.Embedding, n, map[string]string{keyDocumentID: documentID}, nil)
	if err != nil {
		return nil, fmt.Errorf("list chromem records: %w", err)
	}
	ids := make([]string, len(results))
	for i, res := range results {
		ids[i] = res.ID
	}
	return ids, nil
}

// Query runs one filtered query per tag and merges the results, since a
// chromem where clause can only AND exact matches.
func (x *Index) Query(ctx context.Context, vector []float32, tags []string, topK int) ([]domain.SearchHit, error) {
	n := min(topK, x.col.Count())
	if n <= 0 {
		return nil, nil
	}

	filters := []map[string]string{nil}
	if len(tags) > 0 {
		filters = filters[:0]
		for _, t := range tags {
			filters = append(filters, map[string]string{tagPrefix + t: "1"})
		}
	}

	best := make(map[string]domain.SearchHit)
	for _, where := range filters {
		results, err := x.col.QueryEmbedding(ctx, vector, n, where, nil)
		if err != nil {
			return nil, fmt.Errorf("query chromem: %w", err)
		}
		for _, res := range results {
			if _, seen := best[res.ID]; seen {
				continue
			}
			hit, err := fromResult(res)
			if err != nil {
				return nil, err
			}
			best[res.ID] = hit
		}
	}

	hits := make([]domain.SearchHit, 0, len(best))
	for _, h := range best {
		hits = append(hits, h)
	}
	return similarity.TopK(hits, topK), nil
}

// Close is a no-op; persistent databases write through on every change.
func (x *Index) Close() error {
	return nil
}

func toDocument(r domain.SearchRecord) (chromem.Document, error) {
	tags, err := json.Marshal(r.Tags)
	if err != nil {
		return chromem.Document{}, fmt.Errorf("marshal tags: %w", err)
	}
	meta := map[string]string{
		keyDocumentID: r.DocumentID,
		keyTags:       string(tags),
	}
	for _, t := range r.Tags {
		meta[tagPrefix+t] = "1"
	}
	return chromem.Document{
		ID:        r.ID,
		Metadata:  meta,
		Embedding: append([]float32(nil), r.Vector...),
		Content:   r.Text,
	}, nil
}

func fromResult(res chromem.Result) (domain.SearchHit, error) {
	var tags []string
	if raw := res.Metadata[keyTags]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &tags); err != nil {
			return domain.SearchHit{}, fmt.Errorf("unmarshal tags of %s: %w", res.ID, err)
		}
	}
	return domain.SearchHit{
		Record: domain.SearchRecord{
			ID:         res.ID,
			DocumentID: res.Metadata[keyDocumentID],
			Text:       res.Content,
			Vector:     res.Embedding,
			Tags:       tags,
		},
		Score: float64(res.Similarity),
	}, nil
}
