package postprocessors

import (
	"github.com/custodia-labs/clever-documents/internal/core/domain"
	"github.com/custodia-labs/clever-documents/internal/core/ports/driven"
	"github.com/custodia-labs/clever-documents/internal/postprocessors/chunker"
)

// RegisterDefaults registers all built-in chunkers with the registry.
// Tokenizers for the configured scheme come from tokenizers.
func RegisterDefaults(r *Registry, tokenizers driven.TokenizerFactory) {
	r.Register(chunker.Name, func(cfg map[string]any) (driven.Chunker, error) {
		return buildTokenChunker(tokenizers, cfg)
	})
}

// buildTokenChunker creates the token window chunker from generic config.
// Supported config keys:
//   - scheme (string): Tokenization scheme (default: cl100k_base)
//   - max_tokens (int): Tokens per chunk (default: 1024)
//   - overlap (int): Tokens repeated between chunks (default: 50)
func buildTokenChunker(tokenizers driven.TokenizerFactory, cfg map[string]any) (driven.Chunker, error) {
	scheme := domain.DefaultScheme
	if s, ok := cfg["scheme"].(string); ok && s != "" {
		scheme = s
	}

	tok, err := tokenizers.Tokenizer(scheme)
	if err != nil {
		return nil, err
	}

	var opts []chunker.Option
	if n, ok := getIntFromConfig(cfg, "max_tokens"); ok {
		opts = append(opts, chunker.WithMaxTokens(n))
	}
	if n, ok := getIntFromConfig(cfg, "overlap"); ok {
		opts = append(opts, chunker.WithOverlap(n))
	}

	return chunker.New(tok, opts...)
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
