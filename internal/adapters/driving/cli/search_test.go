package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
)

var sampleHits = []domain.SearchHit{
	{Record: domain.SearchRecord{
		ID: "guide_chunk0", DocumentID: "guide", Text: "Retries use exponential backoff.",
		Vector: []float32{0.1, 0.2}, Tags: []string{"technical section"},
	}, Score: 0.87},
}

func TestSearchCmd_Flags(t *testing.T) {
	flag := searchCmd.Flags().Lookup("num-results")
	require.NotNil(t, flag)
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "5", flag.DefValue)

	flag = searchCmd.Flags().Lookup("query")
	require.NotNil(t, flag)
	assert.Equal(t, "q", flag.Shorthand)
}

func TestSearchCmd_RequiresQuery(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "search")

	assert.ErrorContains(t, err, "query is required")
}

func TestSearchCmd_Defaults(t *testing.T) {
	ts := setupTestServices(t)
	ts.search.hits = sampleHits

	out, err := execute(t, "search", "how", "do", "retries", "work")

	require.NoError(t, err)
	assert.Equal(t, []string{"how do retries work"}, ts.search.queries)
	assert.Equal(t, domain.SearchOptions{TopK: 5, Mode: domain.SearchModeSemantic}, ts.search.options)
	assert.Contains(t, out, "Results:")
	assert.Contains(t, out, "[1] guide_chunk0")
	assert.Contains(t, out, "(0.870)")
	assert.Contains(t, out, "#technical-section")
	assert.Contains(t, out, "Retries use exponential backoff.")
}

func TestSearchCmd_Options(t *testing.T) {
	ts := setupTestServices(t)

	out, err := execute(t, "search", "-q", "token limits", "-n", "10", "--tags", "api, reference", "--mode", "hybrid")

	require.NoError(t, err)
	assert.Equal(t, []string{"token limits"}, ts.search.queries)
	assert.Equal(t, domain.SearchOptions{
		TopK: 10, Tags: []string{"api", "reference"}, Mode: domain.SearchModeHybrid,
	}, ts.search.options)
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_JSON(t *testing.T) {
	ts := setupTestServices(t)
	ts.search.hits = sampleHits

	out, err := execute(t, "search", "--json", "backoff")

	require.NoError(t, err)
	assert.Contains(t, out, `"id": "guide_chunk0"`)
	assert.Contains(t, out, `"score": 0.87`)
	assert.NotContains(t, out, "vector")
}

func TestSearchCmd_Failure(t *testing.T) {
	ts := setupTestServices(t)
	ts.search.err = domain.ErrSearchUnavailable

	_, err := execute(t, "search", "anything")

	assert.ErrorIs(t, err, domain.ErrSearchUnavailable)
}

func TestSearchCmd_Interactive(t *testing.T) {
	ts := setupTestServices(t)
	rootCmd.SetIn(strings.NewReader("alpha\n\n  beta  \nexit\ngamma\n"))

	_, err := execute(t, "search", "-i")

	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, ts.search.queries)
}

func TestSearchCmd_InteractiveKeepsGoingOnError(t *testing.T) {
	ts := setupTestServices(t)
	ts.search.err = errors.New("embedding down")
	rootCmd.SetIn(strings.NewReader("one\ntwo\n"))

	out, err := execute(t, "search", "-i")

	require.NoError(t, err)
	assert.Len(t, ts.search.queries, 2)
	assert.Contains(t, out, "embedding down")
}

func TestSnippet(t *testing.T) {
	tests := []struct {
		name string
		text string
		n    int
		want string
	}{
		{"short", "Retry the request.", 10, "Retry the request."},
		{"collapses whitespace", "one\n\ntwo\tthree", 10, "one two three"},
		{"truncates at word", "alpha beta gamma delta", 2, "alpha beta …"},
		{"empty", "   ", 5, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, snippet(tt.text, tt.n))
		})
	}
}
