package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
)

const (
	uriScheme      = "clever://"
	documentsURI   = uriScheme + "documents"
	metadataSuffix = "/metadata"
)

// registerResources registers the document resources when a document service is wired.
func (s *Server) registerResources() {
	if s.ports.Document == nil {
		return
	}

	s.server.AddResource(&mcp.Resource{
		URI:         documentsURI,
		Name:        "documents",
		Description: "Metadata of every ingested document",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: documentsURI + "/{documentId}",
		Name:        "document-content",
		Description: "Uploaded content of a document",
		MIMEType:    "text/plain",
	}, s.handleDocumentContentResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: documentsURI + "/{documentId}" + metadataSuffix,
		Name:        "document-metadata",
		Description: "Metadata of a document: tags, chunk count and location",
		MIMEType:    "application/json",
	}, s.handleDocumentMetadataResource)
}

func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docs, err := s.ports.Document.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	if docs == nil {
		docs = []domain.DocumentMetadata{}
	}
	return jsonResult(req.Params.URI, docs)
}

func (s *Server) handleDocumentContentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docID, metadata := parseDocumentURI(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if metadata {
		return s.handleDocumentMetadataResource(ctx, req)
	}

	content, err := s.ports.Document.Content(ctx, docID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("reading document content: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     string(content),
		}},
	}, nil
}

func (s *Server) handleDocumentMetadataResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docID, metadata := parseDocumentURI(req.Params.URI)
	if docID == "" || !metadata {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	meta, err := s.ports.Document.Get(ctx, docID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("reading document metadata: %w", err)
	}
	return jsonResult(req.Params.URI, meta)
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// parseDocumentURI extracts the document id from clever://documents/{id}
// or clever://documents/{id}/metadata.
func parseDocumentURI(uri string) (docID string, metadata bool) {
	const prefix = documentsURI + "/"

	if !strings.HasPrefix(uri, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(uri, prefix)
	if strings.HasSuffix(rest, metadataSuffix) {
		return strings.TrimSuffix(rest, metadataSuffix), true
	}
	return rest, false
}
