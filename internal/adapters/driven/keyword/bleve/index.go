// Package bleve provides a full-text keyword index over search records.
package bleve

import (
	"context"
	"errors"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
	"github.com/custodia-labs/clever-documents/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.KeywordIndex = (*Index)(nil)

const (
	fieldDocumentID = "document_id"
	fieldText       = "text"
	fieldTags       = "tags"

	pageSize = 1000
)

// record is the indexed form of a domain.SearchRecord.
type record struct {
	DocumentID string   `json:"document_id"`
	Text       string   `json:"text"`
	Tags       []string `json:"tags"`
}

// Index wraps a bleve index.
type Index struct {
	idx bleve.Index
}

// NewMemory creates an index that lives only in memory.
func NewMemory() (*Index, error) {
	idx, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("create keyword index: %w", err)
	}
	return &Index{idx: idx}, nil
}

// Open opens the index at path, creating it if missing.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, newMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open keyword index %s: %w", domain.ErrStorageUnavailable, path, err)
	}
	return &Index{idx: idx}, nil
}

func newMapping() mapping.IndexMapping {
	kw := bleve.NewKeywordFieldMapping()
	kw.Analyzer = keyword.Name

	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt(fieldDocumentID, kw)
	doc.AddFieldMappingsAt(fieldTags, kw)
	doc.AddFieldMappingsAt(fieldText, text)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	im.DefaultAnalyzer = standard.Name
	return im
}

// Index adds or overwrites records by id.
func (x *Index) Index(ctx context.Context, records []domain.SearchRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	batch := x.idx.NewBatch()
	for _, r := range records {
		if err := batch.Index(r.ID, record{DocumentID: r.DocumentID, Text: r.Text, Tags: r.Tags}); err != nil {
			return fmt.Errorf("index record %s: %w", r.ID, err)
		}
	}
	if err := x.idx.Batch(batch); err != nil {
		return fmt.Errorf("write keyword batch: %w", err)
	}
	return nil
}

// DeleteDocument removes every record of a document.
func (x *Index) DeleteDocument(ctx context.Context, documentID string) error {
	q := bleve.NewTermQuery(documentID)
	q.SetField(fieldDocumentID)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := x.idx.SearchInContext(ctx, bleve.NewSearchRequestOptions(q, pageSize, 0, false))
		if err != nil {
			return fmt.Errorf("find document records: %w", err)
		}
		if len(res.Hits) == 0 {
			return nil
		}
		ids := make([]string, len(res.Hits))
		for i, h := range res.Hits {
			ids[i] = h.ID
		}
		if err := x.DeleteRecords(ctx, ids); err != nil {
			return err
		}
	}
}

// RecordIDs lists the ids of every indexed record of a document.
func (x *Index) RecordIDs(ctx context.Context, documentID string) ([]string, error) {
	q := bleve.NewTermQuery(documentID)
	q.SetField(fieldDocumentID)

	var ids []string
	for from := 0; ; from += pageSize {
		res, err := x.idx.SearchInContext(ctx, bleve.NewSearchRequestOptions(q, pageSize, from, false))
		if err != nil {
			return nil, fmt.Errorf("list document records: %w", err)
		}
		for _, h := range res.Hits {
			ids = append(ids, h.ID)
		}
		if len(res.Hits) < pageSize {
			return ids, nil
		}
	}
}

// DeleteRecords removes records by id.
func (x *Index) DeleteRecords(_ context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	batch := x.idx.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := x.idx.Batch(batch); err != nil {
		return fmt.Errorf("delete keyword records: %w", err)
	}
	return nil
}

// Search matches query against record text. Records must carry any of tags.
func (x *Index) Search(ctx context.Context, q string, tags []string, topK int) ([]domain.SearchHit, error) {
	req := bleve.NewSearchRequestOptions(buildQuery(q, tags), topK, 0, false)
	req.Fields = []string{fieldDocumentID, fieldText, fieldTags}

	res, err := x.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	hits := make([]domain.SearchHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		r := domain.SearchRecord{ID: h.ID, Tags: stringsField(h.Fields[fieldTags])}
		r.DocumentID, _ = h.Fields[fieldDocumentID].(string)
		r.Text, _ = h.Fields[fieldText].(string)
		hits = append(hits, domain.SearchHit{Record: r, Score: h.Score})
	}
	return hits, nil
}

// Count returns the number of indexed records.
func (x *Index) Count() (uint64, error) {
	return x.idx.DocCount()
}

// Close closes the underlying index.
func (x *Index) Close() error {
	return x.idx.Close()
}

func buildQuery(text string, tags []string) query.Query {
	match := bleve.NewMatchQuery(text)
	match.SetField(fieldText)
	if len(tags) == 0 {
		return match
	}

	anyTag := make([]query.Query, len(tags))
	for i, tag := range tags {
		t := bleve.NewTermQuery(tag)
		t.SetField(fieldTags)
		anyTag[i] = t
	}
	return bleve.NewConjunctionQuery(match, bleve.NewDisjunctionQuery(anyTag...))
}

// stringsField reads a stored multi-value field. Bleve returns a bare
// string when only one value was stored.
func stringsField(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, s := range t {
			if str, ok := s.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}
