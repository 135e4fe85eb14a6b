// Package sqlite provides SQLite-backed implementations of the metadata
// store and the vector index.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. Both stores share one database connection:
//
//   - MetadataStore: per-document bookkeeping (filename, blob location, chunk count)
//   - VectorIndex: search records with their embeddings, queried by cosine similarity
//
// # Schema
//
// The schema is managed through versioned migrations in the migrations/
// directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.clever/data/clever.db
//
// # Thread Safety
//
// All operations are safe for concurrent use. The database runs in WAL mode
// with a busy timeout so concurrent ingests queue instead of failing.
package sqlite
