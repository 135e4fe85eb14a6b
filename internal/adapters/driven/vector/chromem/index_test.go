package chromem

import (
	"context"
	"testing"

	"github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	x, err := New(chromem.NewDB(), "")
	require.NoError(t, err)

	require.NoError(t, x.UpsertRecords(context.Background(), []domain.SearchRecord{
		{ID: "a_chunk0", DocumentID: "a", Text: "east", Vector: []float32{1, 0}, Tags: []string{"api"}},
		{ID: "a_chunk1", DocumentID: "a", Text: "north-east", Vector: []float32{0.7071, 0.7071}, Tags: []string{"api"}},
		{ID: "b_chunk0", DocumentID: "b", Text: "north", Vector: []float32{0, 1}, Tags: []string{"guide"}},
		{ID: "c_chunk0", DocumentID: "c", Text: "west", Vector: []float32{-1, 0}, Tags: []string{"guide", "api"}},
	}))
	return x
}

func ids(hits []domain.SearchHit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Record.ID
	}
	return out
}

func TestIndex_Query(t *testing.T) {
	x := newTestIndex(t)

	hits, err := x.Query(context.Background(), []float32{1, 0}, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a_chunk0", "a_chunk1"}, ids(hits))
	assert.Equal(t, "a", hits[0].Record.DocumentID)
	assert.Equal(t, "east", hits[0].Record.Text)
	assert.Equal(t, []string{"api"}, hits[0].Record.Tags)
}

func TestIndex_QueryAnyTag(t *testing.T) {
	x := newTestIndex(t)

	hits, err := x.Query(context.Background(), []float32{0, 1}, []string{"guide"}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"b_chunk0", "c_chunk0"}, ids(hits))

	hits, err = x.Query(context.Background(), []float32{0, 1}, []string{"guide", "api"}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 4)
}

func TestIndex_Deletes(t *testing.T) {
	x := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, x.DeleteRecords(ctx, []string{"a_chunk1"}))
	require.NoError(t, x.DeleteDocument(ctx, "c"))

	hits, err := x.Query(ctx, []float32{1, 0}, nil, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a_chunk0", "b_chunk0"}, ids(hits))
}

func TestIndex_EmptyCollection(t *testing.T) {
	x, err := New(chromem.NewDB(), "empty")
	require.NoError(t, err)

	hits, err := x.Query(context.Background(), []float32{1, 0}, nil, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.NoError(t, x.DeleteDocument(context.Background(), "a"))
}

func TestNewPersistent(t *testing.T) {
	dir := t.TempDir()
	x, err := NewPersistent(dir, "records")
	require.NoError(t, err)
	require.NoError(t, x.UpsertRecords(context.Background(), []domain.SearchRecord{
		{ID: "a_chunk0", DocumentID: "a", Text: "east", Vector: []float32{1, 0}},
	}))

	reopened, err := NewPersistent(dir, "records")
	require.NoError(t, err)
	hits, err := reopened.Query(context.Background(), []float32{1, 0}, nil, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a_chunk0", hits[0].Record.ID)
}

func TestIndex_RecordIDs(t *testing.T) {
	x := newTestIndex(t)
	ctx := context.Background()

	got, err := x.RecordIDs(ctx, "a")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a_chunk0", "a_chunk1"}, got)

	got, err = x.RecordIDs(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, x.DeleteRecords(ctx, []string{"a_chunk1"}))
	got, err = x.RecordIDs(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a_chunk0"}, got)
}
