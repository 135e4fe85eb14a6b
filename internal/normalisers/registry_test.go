package normalisers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clever-documents/internal/normalisers/docx"
)

type stubNormaliser struct {
	priority int
	types    []string
}

func (s *stubNormaliser) SupportedMIMETypes() []string { return s.types }
func (s *stubNormaliser) Priority() int                { return s.priority }
func (s *stubNormaliser) Normalise(context.Context, string, []byte) (string, error) {
	return "stub", nil
}

func TestRegistry_PrefersHigherPriority(t *testing.T) {
	r := NewRegistry()
	low := &stubNormaliser{priority: 1, types: []string{"text/plain"}}
	high := &stubNormaliser{priority: 90, types: []string{"text/plain"}}

	r.Register(low)
	r.Register(high)

	assert.Same(t, high, r.Get("text/plain"))
	assert.Same(t, high, r.Get("text/plain; charset=utf-8"))
	assert.Nil(t, r.Get("application/pdf"))
}

func TestDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry()

	for _, mt := range []string{
		"text/plain", "text/markdown", "text/html", "application/json", "message/rfc822", docx.MIMEType,
	} {
		require.NotNil(t, r.Get(mt), mt)
	}
	assert.Equal(t, 50, r.Get("text/markdown").Priority())
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		filename string
		data     string
		expected string
	}{
		{"README.md", "# hi", "text/markdown"},
		{"notes.TXT", "hi", "text/plain"},
		{"main.go", "package main", "text/x-go"},
		{"page.html", "<p>", "text/html"},
		{"thread.eml", "From: a", "message/rfc822"},
		{"Spec.DOCX", "PK", docx.MIMEType},
		{"noext", "plain words", "text/plain"},
		{"noext", "<!DOCTYPE html><html>", "text/html"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectMIMEType(tt.filename, []byte(tt.data)))
		})
	}
}
