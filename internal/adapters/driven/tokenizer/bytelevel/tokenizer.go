// Package bytelevel provides a tokenizer where every UTF-8 byte is one token.
//
// It needs no vocabulary download, round-trips every string exactly and is
// the scheme used by tests and offline runs.
package bytelevel

import (
	"fmt"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
	"github.com/custodia-labs/clever-documents/internal/core/ports/driven"
)

// Scheme is the name this tokenizer registers under.
const Scheme = "bytes"

// Ensure Tokenizer implements the interface.
var _ driven.Tokenizer = Tokenizer{}

// Tokenizer maps bytes to token ids 0-255.
type Tokenizer struct{}

// New returns the byte tokenizer.
func New() Tokenizer {
	return Tokenizer{}
}

// Scheme returns "bytes".
func (Tokenizer) Scheme() string {
	return Scheme
}

// Encode returns one token per byte.
func (Tokenizer) Encode(text string) []int {
	if text == "" {
		return nil
	}
	tokens := make([]int, len(text))
	for i := 0; i < len(text); i++ {
		tokens[i] = int(text[i])
	}
	return tokens
}

// Decode rebuilds the bytes. Ids outside 0-255 are rejected.
func (Tokenizer) Decode(tokens []int) (string, error) {
	buf := make([]byte, len(tokens))
	for i, tok := range tokens {
		if tok < 0 || tok > 255 {
			return "", fmt.Errorf("%w: token %d out of byte range", domain.ErrInvalidInput, tok)
		}
		buf[i] = byte(tok)
	}
	return string(buf), nil
}

// Count returns the byte length of text.
func (Tokenizer) Count(text string) int {
	return len(text)
}
