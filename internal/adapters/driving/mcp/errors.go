// Package mcp provides an MCP (Model Context Protocol) server adapter for clever.
// It lets AI assistants search, ingest and read documents.
package mcp

import "errors"

var (
	// ErrMissingSearchService is returned when the search service is not provided.
	ErrMissingSearchService = errors.New("mcp: search service is required")

	// ErrIngestDisabled is returned by the ingest tool when no ingest service is wired.
	ErrIngestDisabled = errors.New("mcp: ingest is not available")
)
