package tiktoken

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
	"github.com/custodia-labs/clever-documents/internal/postprocessors/chunker"
)

func TestNew_UnknownModel(t *testing.T) {
	_, err := New("not-a-real-model")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnsupportedScheme))
}

func TestIsEncoding(t *testing.T) {
	assert.True(t, isEncoding("cl100k_base"))
	assert.True(t, isEncoding("o200k_base"))
	assert.False(t, isEncoding("gpt-3.5-turbo"))
}

func TestTokenizer_RoundTrip(t *testing.T) {
	tok, err := New("cl100k_base")
	require.NoError(t, err)
	assert.Equal(t, "cl100k_base", tok.Scheme())

	texts := []string{
		"",
		"hello world",
		"日本語のテキスト",
		"func main() {\n\tfmt.Println(\"<|endoftext|>\")\n}",
	}
	for _, text := range texts {
		got, err := tok.Decode(tok.Encode(text))
		require.NoError(t, err)
		assert.Equal(t, text, got)
	}
}

func TestTokenizer_KnownIDs(t *testing.T) {
	tok, err := New("cl100k_base")
	require.NoError(t, err)

	assert.Equal(t, []int{15339, 1917}, tok.Encode("hello world"))
	assert.Equal(t, 2, tok.Count("hello world"))
	assert.Equal(t, 0, tok.Count(""))
}

func TestNew_ModelName(t *testing.T) {
	tok, err := New("text-embedding-ada-002")
	require.NoError(t, err)

	base, err := New("cl100k_base")
	require.NoError(t, err)
	assert.Equal(t, base.Encode("token windows"), tok.Encode("token windows"))

	again, err := New("text-embedding-ada-002")
	require.NoError(t, err)
	assert.Same(t, tok, again)
}

func TestTokenizer_WindowBoundaries(t *testing.T) {
	tok, err := New("cl100k_base")
	require.NoError(t, err)

	const maxTokens, overlap = 16, 4
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 10)
	tokens := tok.Encode(text)

	spans, err := chunker.Windows(len(tokens), maxTokens, overlap)
	require.NoError(t, err)
	chunks, err := chunker.ChunkWithOverlap(tok, text, maxTokens, overlap)
	require.NoError(t, err)
	require.Len(t, chunks, len(spans))
	require.Greater(t, len(chunks), 1)

	rebuilt := chunks[0]
	for i, span := range spans {
		want, err := tok.Decode(tokens[span.Start:span.End])
		require.NoError(t, err)
		assert.Equal(t, want, chunks[i], "window %d", i)
		assert.LessOrEqual(t, span.End-span.Start, maxTokens)

		if i == 0 {
			continue
		}
		shared, err := tok.Decode(tokens[span.Start:spans[i-1].End])
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(chunks[i-1], shared), "window %d overlap", i)
		assert.True(t, strings.HasPrefix(chunks[i], shared), "window %d overlap", i)
		rebuilt += strings.TrimPrefix(chunks[i], shared)
	}
	assert.Equal(t, text, rebuilt)
	assert.Equal(t, len(tokens), spans[len(spans)-1].End)
}
