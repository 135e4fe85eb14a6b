package mcp

import (
	"github.com/custodia-labs/clever-documents/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the MCP server.
type Ports struct {
	// Search answers the search tool. Required.
	Search driving.SearchService

	// Ingest backs the ingest tool. Optional.
	Ingest driving.IngestService

	// Document backs the document resources and delete tool. Optional.
	Document driving.DocumentService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
