package driven

import "context"

// Normaliser turns uploaded bytes of some MIME types into plain text.
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers return 50-89, fallbacks 1-9.
	Priority() int

	// Normalise extracts text from data.
	Normalise(ctx context.Context, filename string, data []byte) (string, error)
}

// NormaliserRegistry selects the normaliser for a MIME type.
type NormaliserRegistry interface {
	// Register adds a normaliser for each of its MIME types.
	Register(n Normaliser)

	// Get returns the highest priority normaliser for mimeType, or nil.
	Get(mimeType string) Normaliser

	// Detect guesses the MIME type of an upload.
	Detect(filename string, data []byte) string
}
