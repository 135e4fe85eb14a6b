// Package filesystem stores uploaded documents as files under a root directory.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
	"github.com/custodia-labs/clever-documents/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.BlobStore = (*Store)(nil)

// Scheme prefixes every location this store hands out.
const Scheme = "file://"

// Store is a BlobStore on the local filesystem.
type Store struct {
	root string
}

// New creates the root directory if needed and returns a store over it.
func New(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve blob root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, fmt.Errorf("%w: create blob root: %w", domain.ErrStorageUnavailable, err)
	}
	return &Store{root: abs}, nil
}

// Put writes data to <root>/<escaped id>, replacing any previous version.
// The write goes through a temp file so readers never see a partial blob.
func (s *Store) Put(ctx context.Context, documentID string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if documentID == "" {
		return "", fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}

	path := filepath.Join(s.root, url.PathEscape(documentID))
	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: write blob: %w", domain.ErrStorageUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: close blob: %w", domain.ErrStorageUnavailable, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("%w: rename blob: %w", domain.ErrStorageUnavailable, err)
	}
	return Scheme + path, nil
}

// Get reads a blob by the location Put returned.
func (s *Store) Get(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, ok := strings.CutPrefix(location, Scheme)
	if !ok {
		return nil, fmt.Errorf("%w: not a file location: %s", domain.ErrInvalidInput, location)
	}
	path = filepath.Clean(path)
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("%w: location outside blob root: %s", domain.ErrInvalidInput, location)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, location)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	return data, nil
}
