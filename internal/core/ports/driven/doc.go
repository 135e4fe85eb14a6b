// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - TokenizerFactory: Resolves tokenization schemes by name
//   - EmbeddingService: Maps texts to vectors
//   - BlobStore: Keeps the uploaded bytes
//   - MetadataStore: One bookkeeping row per document
//   - VectorIndex: Stores search records and answers nearest-neighbour queries
//   - Normaliser: Turns uploaded bytes into plain text
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - KeywordIndex: Full-text search. Without it keyword and hybrid modes are disabled.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
