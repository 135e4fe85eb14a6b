// Package tiktoken provides BPE tokenizers compatible with OpenAI models.
package tiktoken

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
	"github.com/custodia-labs/clever-documents/internal/core/ports/driven"
)

// Ensure Tokenizer implements the interface.
var _ driven.Tokenizer = (*Tokenizer)(nil)

// Encodings lists the encoding names accepted directly as schemes.
// Model names (gpt-3.5-turbo, text-embedding-ada-002, ...) resolve to one of these.
var Encodings = []string{
	"cl100k_base",
	"p50k_base",
	"p50k_edit",
	"r50k_base",
	"o200k_base",
}

// The BPE tables are compiled in, so loading an encoding never touches
// the network or TIKTOKEN_CACHE_DIR.
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Tokenizer wraps one tiktoken encoding.
type Tokenizer struct {
	scheme string
	tke    *tiktoken.Tiktoken
}

var (
	mu    sync.Mutex
	cache = make(map[string]*Tokenizer)
)

// New returns the tokenizer for an encoding or model name.
// Encoders are built once per scheme; the BPE tables are large.
func New(scheme string) (*Tokenizer, error) {
	mu.Lock()
	defer mu.Unlock()

	if t, ok := cache[scheme]; ok {
		return t, nil
	}

	var (
		tke *tiktoken.Tiktoken
		err error
	)
	if isEncoding(scheme) {
		tke, err = tiktoken.GetEncoding(scheme)
		if err != nil {
			return nil, fmt.Errorf("load encoding %s: %w", scheme, err)
		}
	} else {
		tke, err = tiktoken.EncodingForModel(scheme)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedScheme, scheme)
		}
	}

	t := &Tokenizer{scheme: scheme, tke: tke}
	cache[scheme] = t
	return t, nil
}

func isEncoding(name string) bool {
	for _, e := range Encodings {
		if e == name {
			return true
		}
	}
	return false
}

// Scheme returns the encoding or model name this tokenizer was built for.
func (t *Tokenizer) Scheme() string {
	return t.scheme
}

// Encode returns BPE token ids. Special-token text is encoded as ordinary
// text so that every input round-trips.
func (t *Tokenizer) Encode(text string) []int {
	if text == "" {
		return nil
	}
	return t.tke.Encode(text, nil, nil)
}

// Decode returns the text of tokens.
func (t *Tokenizer) Decode(tokens []int) (string, error) {
	if len(tokens) == 0 {
		return "", nil
	}
	return t.tke.Decode(tokens), nil
}

// Count returns the number of tokens in text.
func (t *Tokenizer) Count(text string) int {
	return len(t.Encode(text))
}
