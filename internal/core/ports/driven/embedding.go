package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Implementations should report rejected requests (bad input, auth failure)
// by wrapping domain.ErrEmbeddingRequestInvalid and throttling by wrapping
// domain.ErrRateLimited. Everything else is treated as transient.
//
// Implementations may include:
//   - OpenAI / Azure OpenAI (text-embedding-ada-002, text-embedding-3-small)
//   - Ollama (nomic-embed-text, all-minilm)
//   - Gemini (text-embedding-004)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates one embedding per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 768, 1536).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
