package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
)

func readRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}}
}

func newDocServer(t *testing.T, docs *mockDocumentService) *Server {
	t.Helper()
	server, err := NewServer(&Ports{Search: &mockSearchService{}, Document: docs})
	require.NoError(t, err)
	return server
}

func TestParseDocumentURI(t *testing.T) {
	tests := []struct {
		uri      string
		id       string
		metadata bool
	}{
		{"clever://documents/guide", "guide", false},
		{"clever://documents/guide/metadata", "guide", true},
		{"clever://documents/", "", false},
		{"file://documents/guide", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			id, metadata := parseDocumentURI(tt.uri)
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.metadata, metadata)
		})
	}
}

func TestHandleDocumentsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("lists metadata", func(t *testing.T) {
		server := newDocServer(t, &mockDocumentService{docs: []domain.DocumentMetadata{
			{ID: "guide", Filename: "guide.md", ChunkCount: 2, Tags: []string{"api"}},
		}})

		res, err := server.handleDocumentsResource(ctx, readRequest(documentsURI))

		require.NoError(t, err)
		require.Len(t, res.Contents, 1)
		assert.Equal(t, "application/json", res.Contents[0].MIMEType)
		assert.Contains(t, res.Contents[0].Text, `"id": "guide"`)
		assert.Contains(t, res.Contents[0].Text, `"chunk_count": 2`)
	})

	t.Run("empty list", func(t *testing.T) {
		server := newDocServer(t, &mockDocumentService{})

		res, err := server.handleDocumentsResource(ctx, readRequest(documentsURI))

		require.NoError(t, err)
		assert.Equal(t, "[]", res.Contents[0].Text)
	})

	t.Run("store failure", func(t *testing.T) {
		server := newDocServer(t, &mockDocumentService{err: errors.New("db down")})

		_, err := server.handleDocumentsResource(ctx, readRequest(documentsURI))
		assert.ErrorContains(t, err, "db down")
	})
}

func TestHandleDocumentContentResource(t *testing.T) {
	ctx := context.Background()
	server := newDocServer(t, &mockDocumentService{
		docs:    []domain.DocumentMetadata{{ID: "guide", Filename: "guide.md"}},
		content: map[string][]byte{"guide": []byte("# Guide")},
	})

	res, err := server.handleDocumentContentResource(ctx, readRequest("clever://documents/guide"))
	require.NoError(t, err)
	assert.Equal(t, "# Guide", res.Contents[0].Text)
	assert.Equal(t, "text/plain", res.Contents[0].MIMEType)

	res, err = server.handleDocumentContentResource(ctx, readRequest("clever://documents/guide/metadata"))
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, `"filename": "guide.md"`)

	_, err = server.handleDocumentContentResource(ctx, readRequest("clever://documents/missing"))
	assert.Error(t, err)

	_, err = server.handleDocumentContentResource(ctx, readRequest("clever://elsewhere"))
	assert.Error(t, err)
}

func TestHandleDocumentMetadataResource(t *testing.T) {
	ctx := context.Background()
	server := newDocServer(t, &mockDocumentService{
		docs: []domain.DocumentMetadata{{ID: "guide", Tags: []string{"api"}}},
	})

	res, err := server.handleDocumentMetadataResource(ctx, readRequest("clever://documents/guide/metadata"))
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, `"api"`)

	_, err = server.handleDocumentMetadataResource(ctx, readRequest("clever://documents/guide"))
	assert.Error(t, err)

	_, err = server.handleDocumentMetadataResource(ctx, readRequest("clever://documents/missing/metadata"))
	assert.Error(t, err)
}
