// Package chunker splits text into overlapping token windows.
package chunker

import (
	"context"
	"fmt"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
	"github.com/custodia-labs/clever-documents/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// Name is the registry name of the token window chunker.
const Name = "token"

// Windows returns the token spans covering total tokens.
//
// Windows start at 0 and advance by maxTokens-overlap. The last window ends
// at total and may be shorter than maxTokens; no window starts after the one
// that reaches total.
func Windows(total, maxTokens, overlap int) ([]domain.TokenSpan, error) {
	cfg := domain.ChunkingConfig{MaxTokens: maxTokens, Overlap: overlap}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if total <= 0 {
		return nil, nil
	}

	step := maxTokens - overlap
	spans := make([]domain.TokenSpan, 0, (total+step-1)/step)
	for cursor := 0; cursor < total; cursor += step {
		end := min(cursor+maxTokens, total)
		spans = append(spans, domain.TokenSpan{Start: cursor, End: end})
		if end == total {
			break
		}
	}
	return spans, nil
}

// ChunkWithOverlap returns the decoded text of each window of text.
func ChunkWithOverlap(tok driven.Tokenizer, text string, maxTokens, overlap int) ([]string, error) {
	spans, tokens, err := split(tok, text, maxTokens, overlap)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(spans))
	for i, span := range spans {
		texts[i], err = tok.Decode(tokens[span.Start:span.End])
		if err != nil {
			return nil, fmt.Errorf("decode window %d: %w", i, err)
		}
	}
	return texts, nil
}

// Split chunks a document. Chunk ids come from domain.ComposeChunkID and
// every chunk carries its own copy of the document tags.
func Split(tok driven.Tokenizer, doc *domain.Document, maxTokens, overlap int) ([]domain.Chunk, error) {
	spans, tokens, err := split(tok, doc.Content, maxTokens, overlap)
	if err != nil {
		return nil, err
	}

	chunks := make([]domain.Chunk, len(spans))
	for i, span := range spans {
		text, err := tok.Decode(tokens[span.Start:span.End])
		if err != nil {
			return nil, fmt.Errorf("decode window %d: %w", i, err)
		}
		chunks[i] = domain.Chunk{
			ID:         domain.ComposeChunkID(doc.ID, i),
			DocumentID: doc.ID,
			Index:      i,
			Text:       text,
			Span:       span,
			Tags:       domain.CloneTags(doc.Tags),
		}
	}
	return chunks, nil
}

func split(tok driven.Tokenizer, text string, maxTokens, overlap int) ([]domain.TokenSpan, []int, error) {
	// Validate before encoding so bad config fails even for empty text.
	cfg := domain.ChunkingConfig{MaxTokens: maxTokens, Overlap: overlap}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	tokens := tok.Encode(text)
	spans, err := Windows(len(tokens), maxTokens, overlap)
	if err != nil {
		return nil, nil, err
	}
	return spans, tokens, nil
}

// Processor is the token window chunker bound to one tokenizer and config.
type Processor struct {
	tok       driven.Tokenizer
	maxTokens int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMaxTokens sets the window length in tokens.
func WithMaxTokens(n int) Option {
	return func(p *Processor) {
		p.maxTokens = n
	}
}

// WithOverlap sets the number of tokens repeated between windows.
func WithOverlap(n int) Option {
	return func(p *Processor) {
		p.overlap = n
	}
}

// New creates a chunker. An out-of-range configuration fails with
// domain.ErrInvalidChunkingConfig.
func New(tok driven.Tokenizer, opts ...Option) (*Processor, error) {
	p := &Processor{
		tok:       tok,
		maxTokens: domain.DefaultMaxTokens,
		overlap:   domain.DefaultOverlap,
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := p.Config().Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return Name
}

// Config returns the window parameters.
func (p *Processor) Config() domain.ChunkingConfig {
	return domain.ChunkingConfig{
		Scheme:    p.tok.Scheme(),
		MaxTokens: p.maxTokens,
		Overlap:   p.overlap,
	}
}

// Process splits the document content into chunks.
func (p *Processor) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Split(p.tok, doc, p.maxTokens, p.overlap)
}
