// Package eml turns RFC 822 email messages into searchable text.
package eml

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
	"github.com/custodia-labs/clever-documents/internal/core/ports/driven"
	"github.com/custodia-labs/clever-documents/internal/normalisers/html"
	"github.com/custodia-labs/clever-documents/internal/normalisers/plaintext"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles .eml uploads.
type Normaliser struct{}

// New creates an email normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"message/rfc822"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// headers are copied into the text in this order so they are searchable.
var headers = []string{"From", "To", "Date", "Subject"}

// Normalise returns the main headers followed by the body. Plain text parts
// are preferred over HTML parts.
func (n *Normaliser) Normalise(_ context.Context, filename string, data []byte) (string, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrUnsupportedContent, filename, err)
	}

	var b strings.Builder
	dec := new(mime.WordDecoder)
	for _, h := range headers {
		v := msg.Header.Get(h)
		if v == "" {
			continue
		}
		if d, err := dec.DecodeHeader(v); err == nil {
			v = d
		}
		fmt.Fprintf(&b, "%s: %s\n", h, v)
	}

	body, err := partText(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrUnsupportedContent, filename, err)
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(body)
	return strings.TrimSpace(plaintext.Clean(b.String())), nil
}

func partText(contentType, encoding string, r io.Reader) (string, error) {
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return multipartText(r, params["boundary"])
	}

	if strings.EqualFold(encoding, "quoted-printable") {
		r = quotedprintable.NewReader(r)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	switch mediaType {
	case "text/html":
		return html.Strip(string(data)), nil
	case "text/plain":
		return string(data), nil
	default:
		return "", nil
	}
}

// multipartText joins the text/plain parts, or the HTML parts when there
// are none. Nested multiparts are walked. Attachments are skipped.
func multipartText(r io.Reader, boundary string) (string, error) {
	if boundary == "" {
		return "", errors.New("multipart message without boundary")
	}

	var plain, rich []string
	mr := multipart.NewReader(r, boundary)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		if part.FileName() != "" {
			continue
		}

		ct := part.Header.Get("Content-Type")
		text, err := partText(ct, part.Header.Get("Content-Transfer-Encoding"), part)
		if err != nil {
			return "", err
		}
		if text = strings.TrimSpace(text); text == "" {
			continue
		}
		if mt, _, _ := mime.ParseMediaType(ct); mt == "text/html" {
			rich = append(rich, text)
		} else {
			plain = append(plain, text)
		}
	}

	if len(plain) > 0 {
		return strings.Join(plain, "\n\n"), nil
	}
	return strings.Join(rich, "\n\n"), nil
}
