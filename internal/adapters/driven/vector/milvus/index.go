// Package milvus provides a vector index on a Milvus server using an HNSW
// index with cosine similarity.
package milvus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
	"github.com/custodia-labs/clever-documents/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// DefaultCollection names the collection when none is configured.
const DefaultCollection = "clever_records"

// Field names of the collection schema.
const (
	fieldID         = "id"
	fieldDocumentID = "document_id"
	fieldText       = "text"
	fieldTags       = "tags"
	fieldVector     = "embedding"
)

// Config holds connection and collection settings.
type Config struct {
	Address    string
	Collection string
	Dimensions int
}

// Index stores records in one Milvus collection.
type Index struct {
	db         client.Client
	collection string
	dim        int
}

// New connects to Milvus and makes sure the collection and its index exist.
func New(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("%w: milvus address is required", domain.ErrInvalidInput)
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: milvus needs the embedding dimensions", domain.ErrInvalidInput)
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	db, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
	if err != nil {
		return nil, fmt.Errorf("%w: connect milvus: %w", domain.ErrStorageUnavailable, err)
	}

	x := &Index{db: db, collection: cfg.Collection, dim: cfg.Dimensions}
	if err := x.ensureCollection(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return x, nil
}

func (x *Index) ensureCollection(ctx context.Context) error {
	exists, err := x.db.HasCollection(ctx, x.collection)
	if err != nil {
		return fmt.Errorf("%w: check milvus collection: %w", domain.ErrStorageUnavailable, err)
	}
	if !exists {
		if err := x.db.CreateCollection(ctx, schema(x.collection, x.dim), 0); err != nil {
			return fmt.Errorf("%w: create milvus collection: %w", domain.ErrStorageUnavailable, err)
		}
		idx, err := entity.NewIndexHNSW(entity.COSINE, 8, 200)
		if err != nil {
			return fmt.Errorf("build hnsw index: %w", err)
		}
		if err := x.db.CreateIndex(ctx, x.collection, fieldVector, idx, false); err != nil {
			return fmt.Errorf("%w: create milvus index: %w", domain.ErrStorageUnavailable, err)
		}
	}
	if err := x.db.LoadCollection(ctx, x.collection, false); err != nil {
		return fmt.Errorf("%w: load milvus collection: %w", domain.ErrStorageUnavailable, err)
	}
	return nil
}

func schema(name string, dim int) *entity.Schema {
	return entity.NewSchema().WithName(name).WithAutoID(false).
		WithField(entity.NewField().WithName(fieldID).WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(512).WithIsPrimaryKey(true).WithIsAutoID(false)).
		WithField(entity.NewField().WithName(fieldDocumentID).WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(512)).
		WithField(entity.NewField().WithName(fieldText).WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(65535)).
		WithField(entity.NewField().WithName(fieldTags).WithDataType(entity.FieldTypeJSON)).
		WithField(entity.NewField().WithName(fieldVector).WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(dim)))
}

// UpsertRecords writes records, replacing any with the same id.
func (x *Index) UpsertRecords(ctx context.Context, records []domain.SearchRecord) error {
	if len(records) == 0 {
		return nil
	}
	columns, err := x.columns(records)
	if err != nil {
		return err
	}
	if _, err := x.db.Upsert(ctx, x.collection, "", columns...); err != nil {
		return fmt.Errorf("upsert milvus records: %w", err)
	}
	return nil
}

func (x *Index) columns(records []domain.SearchRecord) ([]entity.Column, error) {
	ids := make([]string, len(records))
	docs := make([]string, len(records))
	texts := make([]string, len(records))
	tags := make([][]byte, len(records))
	vectors := make([][]float32, len(records))
	for i, r := range records {
		if len(r.Vector) != x.dim {
			return nil, fmt.Errorf("%w: record %s has %d dimensions, collection has %d",
				domain.ErrInvalidInput, r.ID, len(r.Vector), x.dim)
		}
		raw, err := json.Marshal(tagsOrEmpty(r.Tags))
		if err != nil {
			return nil, fmt.Errorf("marshal tags: %w", err)
		}
		ids[i], docs[i], texts[i], tags[i], vectors[i] = r.ID, r.DocumentID, r.Text, raw, r.Vector
	}
	return []entity.Column{
		entity.NewColumnVarChar(fieldID, ids),
		entity.NewColumnVarChar(fieldDocumentID, docs),
		entity.NewColumnVarChar(fieldText, texts),
		entity.NewColumnJSONBytes(fieldTags, tags),
		entity.NewColumnFloatVector(fieldVector, x.dim, vectors),
	}, nil
}

// DeleteDocument removes every record of a document.
func (x *Index) DeleteDocument(ctx context.Context, documentID string) error {
	if err := x.db.Delete(ctx, x.collection, "", documentExpr(documentID)); err != nil {
		return fmt.Errorf("delete milvus document: %w", err)
	}
	return nil
}

// DeleteRecords removes records by id.
func (x *Index) DeleteRecords(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := x.db.Delete(ctx, x.collection, "", idsExpr(ids)); err != nil {
		return fmt.Errorf("delete milvus records: %w", err)
	}
	return nil
}

// RecordIDs lists the ids of every record of a document.
func (x *Index) RecordIDs(ctx context.Context, documentID string) ([]string, error) {
	rs, err := x.db.Query(ctx, x.collection, nil, documentExpr(documentID), []string{fieldID})
	if err != nil {
		return nil, fmt.Errorf("list milvus records: %w", err)
	}
	return columnStrings(rs.GetColumn(fieldID))
}

func columnStrings(col entity.Column) ([]string, error) {
	if col == nil {
		return nil, nil
	}
	out := make([]string, col.Len())
	for i := range out {
		s, err := col.GetAsString(i)
		if err != nil {
			return nil, fmt.Errorf("read id: %w", err)
		}
		out[i] = s
	}
	return out, nil
}

// Query searches the HNSW index, filtering on tags server side.
func (x *Index) Query(ctx context.Context, vector []float32, tags []string, topK int) ([]domain.SearchHit, error) {
	sp, err := entity.NewIndexHNSWSearchParam(max(topK, 16))
	if err != nil {
		return nil, fmt.Errorf("build search param: %w", err)
	}
	results, err := x.db.Search(ctx, x.collection, nil, tagsExpr(tags),
		[]string{fieldID, fieldDocumentID, fieldText, fieldTags},
		[]entity.Vector{entity.FloatVector(vector)}, fieldVector, entity.COSINE, topK, sp)
	if err != nil {
		return nil, fmt.Errorf("search milvus: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	return hitsFromResult(results[0])
}

// Close closes the client connection.
func (x *Index) Close() error {
	return x.db.Close()
}

func hitsFromResult(res client.SearchResult) ([]domain.SearchHit, error) {
	idCol := res.Fields.GetColumn(fieldID)
	docCol := res.Fields.GetColumn(fieldDocumentID)
	textCol := res.Fields.GetColumn(fieldText)
	tagCol := res.Fields.GetColumn(fieldTags)
	if idCol == nil {
		idCol = res.IDs
	}

	hits := make([]domain.SearchHit, 0, res.ResultCount)
	for i := 0; i < res.ResultCount; i++ {
		var r domain.SearchRecord
		var err error
		if r.ID, err = idCol.GetAsString(i); err != nil {
			return nil, fmt.Errorf("read id: %w", err)
		}
		if docCol != nil {
			r.DocumentID, _ = docCol.GetAsString(i)
		}
		if textCol != nil {
			r.Text, _ = textCol.GetAsString(i)
		}
		if tagCol != nil {
			if v, err := tagCol.Get(i); err == nil {
				if raw, ok := v.([]byte); ok {
					_ = json.Unmarshal(raw, &r.Tags)
				}
			}
		}
		var score float64
		if i < len(res.Scores) {
			score = float64(res.Scores[i])
		}
		hits = append(hits, domain.SearchHit{Record: r, Score: score})
	}
	return hits, nil
}

func quoteAll(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = strconv.Quote(v)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func documentExpr(documentID string) string {
	return fieldDocumentID + " == " + strconv.Quote(documentID)
}

func idsExpr(ids []string) string {
	return fieldID + " in " + quoteAll(ids)
}

// tagsExpr matches records carrying any of tags; empty matches all.
func tagsExpr(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return "json_contains_any(" + fieldTags + ", " + quoteAll(tags) + ")"
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
