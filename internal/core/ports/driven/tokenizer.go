package driven

// Tokenizer converts text to model-equivalent tokens and back under one scheme.
// Implementations are pure: identical input always yields identical output.
type Tokenizer interface {
	// Scheme returns the tokenization table name.
	Scheme() string

	// Encode returns the ordered token ids of text.
	Encode(text string) []int

	// Decode returns the text of tokens. Decode(Encode(t)) == t.
	Decode(tokens []int) (string, error)

	// Count returns len(Encode(text)).
	Count(text string) int
}

// TokenizerFactory resolves a tokenizer by scheme name.
// Unknown schemes fail with domain.ErrUnsupportedScheme.
type TokenizerFactory interface {
	Tokenizer(scheme string) (Tokenizer, error)
}
