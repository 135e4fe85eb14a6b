package sqlite

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/custodia-labs/clever-documents/internal/adapters/driven/vector/similarity"
	"github.com/custodia-labs/clever-documents/internal/core/domain"
	"github.com/custodia-labs/clever-documents/internal/core/ports/driven"
)

// vectorIndex implements driven.VectorIndex with a brute-force cosine scan.
type vectorIndex struct {
	store *Store
}

var _ driven.VectorIndex = (*vectorIndex)(nil)

// UpsertRecords writes all records in one transaction.
func (v *vectorIndex) UpsertRecords(ctx context.Context, records []domain.SearchRecord) error {
	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (id, document_id, chunk_index, text, vector, tags)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			chunk_index = excluded.chunk_index,
			text = excluded.text,
			vector = excluded.vector,
			tags = excluded.tags
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		tags, err := json.Marshal(tagsOrEmpty(r.Tags))
		if err != nil {
			return fmt.Errorf("marshalling tags: %w", err)
		}
		_, index, _ := domain.ParseChunkID(r.ID)
		if _, err := stmt.ExecContext(ctx, r.ID, r.DocumentID, index, r.Text,
			float32SliceToBytes(r.Vector), string(tags)); err != nil {
			return fmt.Errorf("upserting record %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing records: %w", err)
	}
	return nil
}

// DeleteDocument removes every record of a document.
func (v *vectorIndex) DeleteDocument(ctx context.Context, documentID string) error {
	if _, err := v.store.db.ExecContext(ctx, "DELETE FROM records WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("deleting records: %w", err)
	}
	return nil
}

// DeleteRecords removes records by id.
func (v *vectorIndex) DeleteRecords(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := "DELETE FROM records WHERE id IN (" + placeholders(len(ids)) + ")"
	if _, err := v.store.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting records: %w", err)
	}
	return nil
}

// RecordIDs lists the ids of every record of a document.
func (v *vectorIndex) RecordIDs(ctx context.Context, documentID string) ([]string, error) {
	rows, err := v.store.db.QueryContext(ctx,
		"SELECT id FROM records WHERE document_id = ? ORDER BY chunk_index", documentID)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning record id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Query scores every record whose tags match any of tags and returns the
// topK most similar to vector. The tag filter runs in SQL.
func (v *vectorIndex) Query(
	ctx context.Context, vector []float32, tags []string, topK int,
) ([]domain.SearchHit, error) {
	query := "SELECT id, document_id, text, vector, tags FROM records"
	var args []any
	if len(tags) > 0 {
		query += " WHERE EXISTS (SELECT 1 FROM json_each(records.tags) WHERE json_each.value IN (" +
			placeholders(len(tags)) + "))"
		for _, t := range tags {
			args = append(args, t)
		}
	}

	rows, err := v.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	q := similarity.NewQuery(vector)
	var hits []domain.SearchHit
	for rows.Next() {
		var (
			r        domain.SearchRecord
			blob     []byte
			tagsJSON string
		)
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.Text, &blob, &tagsJSON); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		r.Vector = bytesToFloat32Slice(blob)
		score, ok := q.Score(r.Vector)
		if !ok {
			continue
		}
		if err := json.Unmarshal([]byte(tagsJSON), &r.Tags); err != nil {
			return nil, fmt.Errorf("unmarshalling tags: %w", err)
		}
		hits = append(hits, domain.SearchHit{Record: r, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return similarity.TopK(hits, topK), nil
}

// Close is a no-op; the owning Store closes the connection.
func (v *vectorIndex) Close() error {
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// float32SliceToBytes converts a []float32 to a little-endian byte slice.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
