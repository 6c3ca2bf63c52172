// Package contextstore manages per-identity namespaces of markdown documents
// that are concatenated into every prompt for that identity.
package contextstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ouf-ai/ouf-gateway/internal/domain"
)

// MaxDocumentSize is the ceiling for a single context document.
const MaxDocumentSize = 5 << 20 // 5 MiB

// Store keeps each identity's documents in a directory named by the
// identity's id under the configured root.
type Store struct {
	root string
}

// New creates a store rooted at dir.
func New(dir string) *Store {
	return &Store{root: dir}
}

// IsMarkdownName reports whether name carries a recognized markdown extension.
func IsMarkdownName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".md" || ext == ".markdown"
}

// validateName rejects non-markdown names and anything that could escape the
// namespace directory.
func validateName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return domain.ErrInvalidFormat
	}
	if !IsMarkdownName(name) {
		return domain.ErrInvalidFormat
	}
	return nil
}

func (s *Store) dir(id string) string {
	return filepath.Join(s.root, id)
}

// Provision creates an empty namespace for a newly issued identity.
func (s *Store) Provision(ctx context.Context, id string) error {
	return os.MkdirAll(s.dir(id), 0o755)
}

// List returns the markdown document names in the identity's namespace. An
// absent namespace yields an empty list, not an error.
func (s *Store) List(ctx context.Context, id string) ([]string, error) {
	entries, err := os.ReadDir(s.dir(id))
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: listing context namespace: %v", domain.ErrInternal, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !IsMarkdownName(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Put stores a document, replacing any existing document of the same name.
// It reports whether a prior document was replaced.
func (s *Store) Put(ctx context.Context, id, name string, content []byte) (replaced bool, err error) {
	if err := validateName(name); err != nil {
		return false, err
	}
	if len(content) > MaxDocumentSize {
		return false, domain.ErrPayloadTooLarge
	}

	if err := os.MkdirAll(s.dir(id), 0o755); err != nil {
		return false, fmt.Errorf("%w: creating context namespace: %v", domain.ErrInternal, err)
	}

	path := filepath.Join(s.dir(id), name)
	if _, statErr := os.Stat(path); statErr == nil {
		replaced = true
	}

	if err := os.WriteFile(path, content, 0o644); err != nil {
		return false, fmt.Errorf("%w: writing context document: %v", domain.ErrInternal, err)
	}
	return replaced, nil
}

// Get returns the content of a document.
func (s *Store) Get(ctx context.Context, id, name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(filepath.Join(s.dir(id), name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading context document: %v", domain.ErrInternal, err)
	}
	return content, nil
}

// Delete removes a document.
func (s *Store) Delete(ctx context.Context, id, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir(id), name))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: deleting context document: %v", domain.ErrInternal, err)
	}
	return nil
}

// LoadAll concatenates every markdown document in the namespace, in listing
// order, separated by blank lines. An absent or empty namespace yields "";
// having no context configured is a normal state.
func (s *Store) LoadAll(ctx context.Context, id string) (string, error) {
	names, err := s.List(ctx, id)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, name := range names {
		content, err := s.Get(ctx, id, name)
		if err != nil {
			return "", err
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.Write(content)
	}
	return sb.String(), nil
}
