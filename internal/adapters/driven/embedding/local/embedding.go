// Package local provides an offline embedding service that hashes words
// into a fixed-size vector. It needs no network and is deterministic, which
// makes it the default for tests and air-gapped use.
package local

import (
	"bytes"
	"context"
	"hash/fnv"
	"math"
	"unicode"
	"unicode/utf8"

	"github.com/clipperhouse/uax29/words"

	"github.com/custodia-labs/clever-documents/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultDimensions is the vector size when none is configured.
const DefaultDimensions = 256

// EmbeddingService is a feature-hashing bag-of-words embedder.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a local embedder with the given dimensions.
func NewEmbeddingService(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &EmbeddingService{dimensions: dimensions}
}

// Embed hashes each word of text into the vector and L2-normalises it.
// Text without words yields the zero vector.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, s.dimensions)
	for _, w := range words.SegmentAll([]byte(text)) {
		if !isWord(w) {
			continue
		}
		h := fnv.New64a()
		_, _ = h.Write(bytes.ToLower(w))
		sum := h.Sum64()
		sign := float32(1)
		if sum>>63 == 1 {
			sign = -1
		}
		vec[sum%uint64(s.dimensions)] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}

// EmbedBatch embeds each text in order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return "local-hash"
}

// Ping always succeeds.
func (s *EmbeddingService) Ping(context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

// isWord reports whether a segment holds at least one letter or digit.
func isWord(seg []byte) bool {
	for len(seg) > 0 {
		r, size := utf8.DecodeRune(seg)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
		seg = seg[size:]
	}
	return false
}
