// Package gemini provides an embedding service adapter using the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
	"github.com/custodia-labs/clever-documents/internal/core/ports/driven"
	"github.com/custodia-labs/clever-documents/internal/embedding"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel      = "text-embedding-004"
	DefaultDimensions = 768
)

// Config holds configuration for the Gemini embedding service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the embedding model (default: text-embedding-004).
	Model string

	// Dimensions is the embedding vector size (default: 768).
	Dimensions int
}

// EmbeddingService generates embeddings with generative-ai-go.
type EmbeddingService struct {
	client     *genai.Client
	model      *genai.EmbeddingModel
	name       string
	dimensions int
}

// NewEmbeddingService connects a Gemini client.
func NewEmbeddingService(ctx context.Context, cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key is required", domain.ErrInvalidInput)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &EmbeddingService{
		client:     client,
		model:      client.EmbeddingModel(cfg.Model),
		name:       cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := s.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, classify(err)
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("%w: gemini returned no embedding", domain.ErrRecordCountMismatch)
	}
	return resp.Embedding.Values, nil
}

// EmbedBatch embeds all texts with one BatchEmbedContents call.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	batch := s.model.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}
	resp, err := s.model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: sent %d texts, got %d embeddings",
			domain.ErrRecordCountMismatch, len(texts), len(resp.Embeddings))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		vectors[i] = e.Values
	}
	return vectors, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.name
}

// Ping checks the key by reading the model info.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if _, err := s.model.Info(ctx); err != nil {
		return fmt.Errorf("gemini: ping failed: %w", classify(err))
	}
	return nil
}

// Close releases the client connection.
func (s *EmbeddingService) Close() error {
	return s.client.Close()
}

// grpcStatus translates gRPC codes to the HTTP status they stand for.
var grpcStatus = map[codes.Code]int{
	codes.InvalidArgument:   http.StatusBadRequest,
	codes.Unauthenticated:   http.StatusUnauthorized,
	codes.PermissionDenied:  http.StatusForbidden,
	codes.NotFound:          http.StatusNotFound,
	codes.ResourceExhausted: http.StatusTooManyRequests,
	codes.DeadlineExceeded:  http.StatusRequestTimeout,
	codes.Unavailable:       http.StatusServiceUnavailable,
	codes.Internal:          http.StatusInternalServerError,
}

// classify maps REST and gRPC errors onto the domain taxonomy.
func classify(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return fmt.Errorf("gemini: %w", embedding.Classify(gerr.Code, gerr.Message))
	}
	if st, ok := status.FromError(err); ok {
		if code, known := grpcStatus[st.Code()]; known {
			return fmt.Errorf("gemini: %w", embedding.Classify(code, st.Message()))
		}
	}
	return fmt.Errorf("gemini: %w", err)
}
