// Package mongo provides a MongoDB-backed metadata store.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
	"github.com/custodia-labs/clever-documents/internal/core/ports/driven"
)

// Ensure MetadataStore implements the interface.
var _ driven.MetadataStore = (*MetadataStore)(nil)

// Default names used when the config leaves them empty.
const (
	DefaultDatabase   = "clever"
	DefaultCollection = "documents"
)

// document is the stored shape of domain.DocumentMetadata.
type document struct {
	ID          string    `bson:"_id"`
	Filename    string    `bson:"filename"`
	ContentType string    `bson:"content_type"`
	Location    string    `bson:"location"`
	ChunkCount  int       `bson:"chunk_count"`
	Tags        []string  `bson:"tags"`
	UploadedAt  time.Time `bson:"uploaded_at"`
}

func toDocument(m domain.DocumentMetadata) document {
	return document{
		ID:          m.ID,
		Filename:    m.Filename,
		ContentType: m.ContentType,
		Location:    m.Location,
		ChunkCount:  m.ChunkCount,
		Tags:        domain.CloneTags(m.Tags),
		UploadedAt:  m.UploadedAt.UTC(),
	}
}

func (d document) metadata() domain.DocumentMetadata {
	return domain.DocumentMetadata{
		ID:          d.ID,
		Filename:    d.Filename,
		ContentType: d.ContentType,
		Location:    d.Location,
		ChunkCount:  d.ChunkCount,
		Tags:        d.Tags,
		UploadedAt:  d.UploadedAt,
	}
}

// MetadataStore keeps one MongoDB document per ingested document.
type MetadataStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Connect dials uri and returns a store over database.documents.
func Connect(ctx context.Context, uri, database string) (*MetadataStore, error) {
	if uri == "" {
		return nil, fmt.Errorf("%w: mongo uri is required", domain.ErrInvalidInput)
	}
	if database == "" {
		database = DefaultDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: connect mongo: %w", domain.ErrStorageUnavailable, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: ping mongo: %w", domain.ErrStorageUnavailable, err)
	}

	return &MetadataStore{
		client: client,
		coll:   client.Database(database).Collection(DefaultCollection),
	}, nil
}

// Upsert stores or replaces a document's metadata.
func (s *MetadataStore) Upsert(ctx context.Context, meta domain.DocumentMetadata) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": meta.ID}, toDocument(meta),
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}
	return nil
}

// Get retrieves a document's metadata.
func (s *MetadataStore) Get(ctx context.Context, id string) (*domain.DocumentMetadata, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding document: %w", err)
	}
	meta := doc.metadata()
	return &meta, nil
}

// List returns all metadata ordered by id.
func (s *MetadataStore) List(ctx context.Context) ([]domain.DocumentMetadata, error) {
	cursor, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding documents: %w", err)
	}
	out := make([]domain.DocumentMetadata, len(docs))
	for i, d := range docs {
		out[i] = d.metadata()
	}
	return out, nil
}

// Delete removes a document's metadata.
func (s *MetadataStore) Delete(ctx context.Context, id string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *MetadataStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
