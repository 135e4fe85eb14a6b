// Package domain defines the core entities of the document pipeline.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: Caller-owned text plus tags, immutable once submitted
//   - TokenSpan: Half-open token range covered by one chunk
//   - Chunk: Overlapping token-bounded segment of a document
//   - SearchRecord: Unit written to the search index, one per chunk
//   - RunReport: Outcome of one ingest run through the stage machine
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
