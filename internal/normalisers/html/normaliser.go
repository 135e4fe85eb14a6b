package html

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/custodia-labs/clever-documents/internal/core/ports/driven"
	"github.com/custodia-labs/clever-documents/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise returns the visible text of an HTML page, one block per line.
func (n *Normaliser) Normalise(_ context.Context, _ string, data []byte) (string, error) {
	return Strip(plaintext.Clean(string(data))), nil
}

var (
	hidden   = regexp.MustCompile(`(?is)<(script|style|noscript|head|svg)[^>]*>.*?</(script|style|noscript|head|svg)>`)
	comments = regexp.MustCompile(`(?s)<!--.*?-->`)
	blocks   = regexp.MustCompile(`(?i)</?(p|div|br|hr|h[1-6]|li|tr|blockquote|pre|table|section|article)(\s[^>]*)?/?>`)
	tags     = regexp.MustCompile(`<[^>]+>`)
	spaces   = regexp.MustCompile(`[ \t]+`)
)

// Strip drops non-visible elements and tags, decodes entities, and puts
// block-level elements on their own lines.
func Strip(s string) string {
	s = hidden.ReplaceAllString(s, "")
	s = comments.ReplaceAllString(s, "")
	s = blocks.ReplaceAllString(s, "\n")
	s = tags.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = spaces.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
