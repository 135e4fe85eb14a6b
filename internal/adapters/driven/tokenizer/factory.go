// Package tokenizer resolves tokenization schemes to adapters.
package tokenizer

import (
	"fmt"

	"github.com/custodia-labs/clever-documents/internal/adapters/driven/tokenizer/bytelevel"
	"github.com/custodia-labs/clever-documents/internal/adapters/driven/tokenizer/tiktoken"
	"github.com/custodia-labs/clever-documents/internal/core/domain"
	"github.com/custodia-labs/clever-documents/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.TokenizerFactory = (*Factory)(nil)

// Factory builds tokenizers by scheme name.
type Factory struct{}

// NewFactory creates a tokenizer factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Tokenizer returns the tokenizer for scheme.
// "bytes" is the byte-level scheme; anything else goes through tiktoken.
func (f *Factory) Tokenizer(scheme string) (driven.Tokenizer, error) {
	switch scheme {
	case "":
		return nil, fmt.Errorf("%w: empty scheme", domain.ErrUnsupportedScheme)
	case bytelevel.Scheme:
		return bytelevel.New(), nil
	}
	return tiktoken.New(scheme)
}
