package markdown

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
	"github.com/custodia-labs/clever-documents/internal/core/ports/driven"
	"github.com/custodia-labs/clever-documents/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise strips front matter and inline markup. Code block contents are
// kept since technical documents are searched by them.
func (n *Normaliser) Normalise(_ context.Context, filename string, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not UTF-8 text", domain.ErrUnsupportedContent, filename)
	}
	return Strip(plaintext.Clean(string(data))), nil
}

var (
	frontMatter  = regexp.MustCompile(`(?s)\A---\n.*?\n---\n`)
	fences       = regexp.MustCompile("(?m)^\\s*(```|~~~).*$\n?")
	images       = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	links        = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	headings     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	emphasis     = regexp.MustCompile(`(\*\*|__|\*)(\S(?:.*?\S)?)(\*\*|__|\*)`)
	inlineCode   = regexp.MustCompile("`([^`]+)`")
	blockquote   = regexp.MustCompile(`(?m)^>\s?`)
	rules        = regexp.MustCompile(`(?m)^\s*([-*_]\s*){3,}$`)
	bullets      = regexp.MustCompile(`(?m)^(\s*)[-*+]\s+`)
	blankRuns    = regexp.MustCompile(`\n{3,}`)
	htmlComments = regexp.MustCompile(`(?s)<!--.*?-->`)
)

// Strip reduces Markdown to readable text.
func Strip(s string) string {
	s = frontMatter.ReplaceAllString(s, "")
	s = htmlComments.ReplaceAllString(s, "")
	s = fences.ReplaceAllString(s, "")
	s = images.ReplaceAllString(s, "$1")
	s = links.ReplaceAllString(s, "$1")
	s = headings.ReplaceAllString(s, "")
	s = rules.ReplaceAllString(s, "")
	s = blockquote.ReplaceAllString(s, "")
	s = bullets.ReplaceAllString(s, "$1")
	s = inlineCode.ReplaceAllString(s, "$1")
	s = emphasis.ReplaceAllString(s, "$2")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
