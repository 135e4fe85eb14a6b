package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Document is the unit submitted to the ingest pipeline.
// It is owned by the caller and must not be mutated once submitted.
type Document struct {
	// ID is the caller-supplied external identifier.
	ID string

	// Filename is the original file name, kept for metadata bookkeeping.
	Filename string

	// ContentType is the MIME type the content was normalised from.
	ContentType string

	// Content is the plain text after normalisation.
	Content string

	// Tags are inherited by every chunk of the document.
	Tags []string

	// UploadedAt is when the document entered the pipeline.
	UploadedAt time.Time
}

// DocumentMetadata is the bookkeeping row kept per document.
type DocumentMetadata struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type,omitempty"`
	Location    string    `json:"location,omitempty"`
	ChunkCount  int       `json:"chunk_count"`
	Tags        []string  `json:"tags,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// TokenSpan is the half-open range [Start, End) over a document's token stream.
type TokenSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of tokens in the span.
func (s TokenSpan) Len() int {
	return s.End - s.Start
}

// Chunk is a contiguous, possibly overlapping, token-bounded segment of a document.
type Chunk struct {
	// ID is ComposeChunkID(DocumentID, Index).
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Index is the zero-based position within the document.
	Index int

	// Text is the decoded text of Span.
	Text string

	// Span is the token range this chunk covers.
	Span TokenSpan

	// Tags are copied from the parent document.
	Tags []string
}

// SearchRecord is the unit written to the search index.
// Exactly one record exists per chunk and its ID equals the chunk ID.
type SearchRecord struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Text       string    `json:"text"`
	Vector     []float32 `json:"vector,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
}

const chunkIDSeparator = "_chunk"

// ComposeChunkID returns the stable identifier of the index-th chunk of a document.
// Reprocessing a document with the same parameters yields the same ids.
func ComposeChunkID(documentID string, index int) string {
	return documentID + chunkIDSeparator + strconv.Itoa(index)
}

// ParseChunkID splits a chunk id produced by ComposeChunkID.
func ParseChunkID(id string) (documentID string, index int, ok bool) {
	pos := strings.LastIndex(id, chunkIDSeparator)
	if pos <= 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(id[pos+len(chunkIDSeparator):])
	if err != nil || n < 0 {
		return "", 0, false
	}
	return id[:pos], n, true
}

// ChunkingConfig holds the token window parameters.
type ChunkingConfig struct {
	// Scheme names the tokenization table (e.g. cl100k_base).
	Scheme string

	// MaxTokens is the maximum window length.
	MaxTokens int

	// Overlap is the number of tokens repeated at the start of the next window.
	Overlap int
}

// Default chunking parameters.
const (
	DefaultMaxTokens = 1024
	DefaultOverlap   = 50
	DefaultScheme    = "cl100k_base"
)

// DefaultChunkingConfig returns the default window parameters.
func DefaultChunkingConfig() ChunkingConfig {
	return ChunkingConfig{
		Scheme:    DefaultScheme,
		MaxTokens: DefaultMaxTokens,
		Overlap:   DefaultOverlap,
	}
}

// Validate checks max_tokens > 0 and 0 <= overlap < max_tokens.
func (c ChunkingConfig) Validate() error {
	if c.MaxTokens <= 0 {
		return fmt.Errorf("%w: max_tokens must be positive, got %d", ErrInvalidChunkingConfig, c.MaxTokens)
	}
	if c.Overlap < 0 || c.Overlap >= c.MaxTokens {
		return fmt.Errorf("%w: overlap must be in [0, %d), got %d",
			ErrInvalidChunkingConfig, c.MaxTokens, c.Overlap)
	}
	return nil
}

// CloneTags returns an independent copy of tags.
func CloneTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}

// ParseTags splits a comma-separated tag list, trimming blanks and duplicates.
func ParseTags(s string) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		tag := strings.TrimSpace(part)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}
