// Package normalisers turns uploaded bytes into the plain text that gets
// chunked. Each normaliser handles a set of MIME types; the Registry picks
// the highest priority one for a document.
package normalisers
