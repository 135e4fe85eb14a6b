package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string   `json:"query" jsonschema:"the search query"`
	TopK  int      `json:"top_k,omitempty" jsonschema:"maximum number of results (default 5)"`
	Tags  []string `json:"tags,omitempty" jsonschema:"only return chunks carrying any of these tags"`
	Mode  string   `json:"mode,omitempty" jsonschema:"semantic (default), keyword or hybrid"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput is one ranked chunk.
type SearchResultOutput struct {
	ID         string   `json:"id"`
	DocumentID string   `json:"document_id"`
	Text       string   `json:"text"`
	Tags       []string `json:"tags,omitempty"`
	Score      float64  `json:"score"`
}

// IngestInput is the input schema for the ingest tool.
type IngestInput struct {
	DocumentID string   `json:"document_id" jsonschema:"stable identifier of the document"`
	Filename   string   `json:"filename,omitempty" jsonschema:"file name used to detect the content type"`
	Content    string   `json:"content" jsonschema:"the document text"`
	Tags       []string `json:"tags,omitempty" jsonschema:"tags applied to every chunk (default: technical section)"`
}

// IngestOutput reports a completed run.
type IngestOutput struct {
	RunID      string `json:"run_id"`
	DocumentID string `json:"document_id"`
	State      string `json:"state"`
	ChunkCount int    `json:"chunk_count"`
	Pruned     int    `json:"pruned"`
}

// DeleteInput is the input schema for the delete_document tool.
type DeleteInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document to remove"`
}

// DeleteOutput confirms a deletion.
type DeleteOutput struct {
	DocumentID string `json:"document_id"`
	Deleted    bool   `json:"deleted"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search ingested document chunks, optionally filtered by tags",
	}, s.handleSearch)

	if s.ports.Ingest != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest",
			Description: "Chunk, embed and index a document so it becomes searchable",
		}, s.handleIngest)
	}

	if s.ports.Document != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "delete_document",
			Description: "Remove a document and all of its chunks",
		}, s.handleDelete)
	}
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := domain.SearchOptions{
		TopK: input.TopK,
		Tags: input.Tags,
		Mode: domain.SearchMode(input.Mode),
	}
	hits, err := s.ports.Search.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(hits)),
		Count:   len(hits),
	}
	for i, h := range hits {
		output.Results[i] = SearchResultOutput{
			ID:         h.Record.ID,
			DocumentID: h.Record.DocumentID,
			Text:       h.Record.Text,
			Tags:       h.Record.Tags,
			Score:      h.Score,
		}
	}
	return nil, output, nil
}

func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	if s.ports.Ingest == nil {
		return nil, IngestOutput{}, ErrIngestDisabled
	}

	filename := input.Filename
	if filename == "" {
		filename = input.DocumentID + ".txt"
	}
	report, err := s.ports.Ingest.Ingest(ctx, domain.IngestRequest{
		DocumentID: input.DocumentID,
		Filename:   filename,
		Data:       []byte(input.Content),
		Tags:       input.Tags,
	})
	if err != nil {
		return nil, IngestOutput{}, err
	}

	return nil, IngestOutput{
		RunID:      report.RunID,
		DocumentID: report.DocumentID,
		State:      string(report.State),
		ChunkCount: report.ChunkCount,
		Pruned:     report.Pruned,
	}, nil
}

func (s *Server) handleDelete(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DeleteInput,
) (*mcp.CallToolResult, DeleteOutput, error) {
	if s.ports.Document == nil {
		return nil, DeleteOutput{}, errors.New("mcp: document service is not available")
	}
	if err := s.ports.Document.Delete(ctx, input.DocumentID); err != nil {
		return nil, DeleteOutput{}, err
	}
	return nil, DeleteOutput{DocumentID: input.DocumentID, Deleted: true}, nil
}
