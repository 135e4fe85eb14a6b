// Package docx extracts paragraph text from Word documents.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
	"github.com/custodia-labs/clever-documents/internal/core/ports/driven"
)

// MIMEType is the Office Open XML word processing type.
const MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles DOCX uploads.
type Normaliser struct{}

// New creates a DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise returns one line per paragraph of word/document.xml, prefixed by
// the core title when the document has one.
func (n *Normaliser) Normalise(_ context.Context, filename string, data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %s is not a docx archive", domain.ErrUnsupportedContent, filename)
	}

	body, err := readPart(zr, "word/document.xml")
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrUnsupportedContent, filename, err)
	}
	text, err := paragraphs(body)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrUnsupportedContent, filename, err)
	}

	if core, err := readPart(zr, "docProps/core.xml"); err == nil {
		if title := coreTitle(core); title != "" && !strings.HasPrefix(text, title) {
			text = title + "\n\n" + text
		}
	}
	return text, nil
}

func readPart(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("missing %s", name)
}

type documentXML struct {
	Body struct {
		Paragraphs []struct {
			Runs []struct {
				Text []string `xml:"t"`
			} `xml:"r"`
		} `xml:"p"`
	} `xml:"body"`
}

func paragraphs(data []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", err
	}

	lines := make([]string, 0, len(doc.Body.Paragraphs))
	for _, p := range doc.Body.Paragraphs {
		var b strings.Builder
		for _, r := range p.Runs {
			for _, t := range r.Text {
				b.WriteString(t)
			}
		}
		lines = append(lines, b.String())
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

func coreTitle(data []byte) string {
	var core struct {
		Title string `xml:"title"`
	}
	if err := xml.Unmarshal(data, &core); err != nil {
		return ""
	}
	return strings.TrimSpace(core.Title)
}
