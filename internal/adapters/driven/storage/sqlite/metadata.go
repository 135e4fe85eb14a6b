package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
	"github.com/custodia-labs/clever-documents/internal/core/ports/driven"
)

// metadataStore implements driven.MetadataStore.
type metadataStore struct {
	store *Store
}

var _ driven.MetadataStore = (*metadataStore)(nil)

// Upsert stores or replaces a document's metadata.
func (m *metadataStore) Upsert(ctx context.Context, meta domain.DocumentMetadata) error {
	tags, err := json.Marshal(tagsOrEmpty(meta.Tags))
	if err != nil {
		return fmt.Errorf("marshalling tags: %w", err)
	}

	_, err = m.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, filename, content_type, location, chunk_count, tags, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			content_type = excluded.content_type,
			location = excluded.location,
			chunk_count = excluded.chunk_count,
			tags = excluded.tags,
			uploaded_at = excluded.uploaded_at
	`, meta.ID, meta.Filename, meta.ContentType, meta.Location, meta.ChunkCount, string(tags),
		meta.UploadedAt.UTC())
	if err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}
	return nil
}

// Get retrieves a document's metadata.
func (m *metadataStore) Get(ctx context.Context, id string) (*domain.DocumentMetadata, error) {
	row := m.store.db.QueryRowContext(ctx, `
		SELECT id, filename, content_type, location, chunk_count, tags, uploaded_at
		FROM documents WHERE id = ?
	`, id)

	meta, err := scanMetadata(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying document: %w", err)
	}
	return meta, nil
}

// List returns metadata for all documents ordered by id.
func (m *metadataStore) List(ctx context.Context) ([]domain.DocumentMetadata, error) {
	rows, err := m.store.db.QueryContext(ctx, `
		SELECT id, filename, content_type, location, chunk_count, tags, uploaded_at
		FROM documents ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.DocumentMetadata
	for rows.Next() {
		meta, err := scanMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, *meta)
	}
	return docs, rows.Err()
}

// Delete removes a document's metadata. Unknown ids are not an error.
func (m *metadataStore) Delete(ctx context.Context, id string) error {
	if _, err := m.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// Close is a no-op; the owning Store closes the connection.
func (m *metadataStore) Close() error {
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMetadata(row scanner) (*domain.DocumentMetadata, error) {
	var (
		meta     domain.DocumentMetadata
		tagsJSON string
		uploaded time.Time
	)
	if err := row.Scan(&meta.ID, &meta.Filename, &meta.ContentType, &meta.Location,
		&meta.ChunkCount, &tagsJSON, &uploaded); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &meta.Tags); err != nil {
		return nil, fmt.Errorf("unmarshalling tags: %w", err)
	}
	meta.UploadedAt = uploaded
	return &meta, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
