package driven

import "context"

// BlobStore keeps uploaded document bytes.
// Failures wrap domain.ErrStorageUnavailable; a missing object wraps domain.ErrNotFound.
type BlobStore interface {
	// Put stores data for a document and returns its location.
	// Putting the same document again overwrites it.
	Put(ctx context.Context, documentID string, data []byte) (string, error)

	// Get reads the bytes at a location returned by Put.
	Get(ctx context.Context, location string) ([]byte, error)
}
