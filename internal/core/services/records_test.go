package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
)

func TestBuildRecords(t *testing.T) {
	tags := []string{"technical section"}
	texts := []string{"same", "same", "other"}
	vectors := [][]float32{{1}, {2}, {3}}

	records, err := BuildRecords("doc1", tags, texts, vectors)
	require.NoError(t, err)
	require.Len(t, records, 3)

	for i, r := range records {
		assert.Equal(t, domain.ComposeChunkID("doc1", i), r.ID)
		assert.Equal(t, "doc1", r.DocumentID)
		assert.Equal(t, texts[i], r.Text)
		assert.Equal(t, vectors[i], r.Vector)
		assert.Equal(t, tags, r.Tags)
	}

	records[0].Tags[0] = "changed"
	assert.Equal(t, "technical section", records[1].Tags[0])
	assert.Equal(t, "technical section", tags[0])
}

func TestBuildRecords_Empty(t *testing.T) {
	records, err := BuildRecords("doc1", nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestBuildRecords_CountMismatch(t *testing.T) {
	_, err := BuildRecords("doc1", nil, []string{"a", "b"}, [][]float32{{1}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRecordCountMismatch))
}

func TestBuildRecords_StableIDs(t *testing.T) {
	a, _ := BuildRecords("doc1", nil, []string{"x", "y"}, [][]float32{{1}, {2}})
	b, _ := BuildRecords("doc1", nil, []string{"x", "y"}, [][]float32{{1}, {2}})
	assert.Equal(t, a, b)
}

func TestStaleIDs(t *testing.T) {
	records, err := BuildRecords("d", nil, []string{"a", "b"}, [][]float32{{1}, {2}})
	require.NoError(t, err)

	stored := []string{"d_chunk3", "d_chunk0", "d_chunk2", "d_chunk1", "d_chunk10"}
	assert.Equal(t, []string{"d_chunk10", "d_chunk2", "d_chunk3"}, staleIDs(stored, records))
	assert.Nil(t, staleIDs([]string{"d_chunk0"}, records))
	assert.Nil(t, staleIDs(nil, records))
	assert.Equal(t, []string{"d_chunk0"}, staleIDs([]string{"d_chunk0"}, nil))
}
