package normalisers

import (
	"mime"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/clever-documents/internal/core/ports/driven"
	"github.com/custodia-labs/clever-documents/internal/normalisers/docx"
	"github.com/custodia-labs/clever-documents/internal/normalisers/eml"
	"github.com/custodia-labs/clever-documents/internal/normalisers/html"
	"github.com/custodia-labs/clever-documents/internal/normalisers/markdown"
	"github.com/custodia-labs/clever-documents/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry selects normalisers by MIME type.
type Registry struct {
	mu     sync.RWMutex
	byType map[string][]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byType: make(map[string][]driven.Normaliser)}
}

// NewDefaultRegistry returns a registry with the built-in normalisers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(docx.New())
	r.Register(eml.New())
	return r
}

// Register adds n under each of its MIME types.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range n.SupportedMIMETypes() {
		list := append(r.byType[t], n)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.byType[t] = list
	}
}

// Get returns the highest priority normaliser for mimeType, or nil.
// Parameters such as "; charset=utf-8" are ignored.
func (r *Registry) Get(mimeType string) driven.Normaliser {
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = mt
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if list := r.byType[mimeType]; len(list) > 0 {
		return list[0]
	}
	return nil
}

// Detect guesses the MIME type of an upload.
func (r *Registry) Detect(filename string, data []byte) string {
	return DetectMIMEType(filename, data)
}

// extra covers extensions the platform MIME table often lacks.
var extra = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
	".go":       "text/x-go",
	".py":       "text/x-python",
	".rs":       "text/x-rust",
	".toml":     "text/toml",
	".yaml":     "text/yaml",
	".yml":      "text/yaml",
	".eml":      "message/rfc822",
	".docx":     docx.MIMEType,
}

// DetectMIMEType guesses the MIME type from the file extension, falling back
// to content sniffing.
func DetectMIMEType(filename string, data []byte) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if t, ok := extra[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if mt, _, err := mime.ParseMediaType(t); err == nil {
			return mt
		}
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mt
}
