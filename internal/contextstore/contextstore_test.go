package contextstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ouf-ai/ouf-gateway/internal/domain"
)

func TestListAbsentNamespace(t *testing.T) {
	s := New(t.TempDir())

	files, err := s.List(context.Background(), "never-provisioned")
	if err != nil {
		t.Fatalf("absent namespace must not error: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected empty list, got %v", files)
	}
}

func TestPutReplaceSemantics(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	replaced, err := s.Put(ctx, "id", "a.md", []byte("first"))
	if err != nil {
		t.Fatalf("first put: %v", err)
	}
	if replaced {
		t.Error("first put must report replaced=false")
	}

	replaced, err = s.Put(ctx, "id", "a.md", []byte("second"))
	if err != nil {
		t.Fatalf("second put: %v", err)
	}
	if !replaced {
		t.Error("second put must report replaced=true")
	}

	files, _ := s.List(ctx, "id")
	if len(files) != 1 || files[0] != "a.md" {
		t.Fatalf("expected exactly one a.md, got %v", files)
	}
	content, err := s.Get(ctx, "id", "a.md")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(content) != "second" {
		t.Errorf("content = %q, want the second upload", content)
	}
}

func TestPutRejectsNonMarkdown(t *testing.T) {
	s := New(t.TempDir())

	for _, name := range []string{"a.txt", "a", "a.md.exe", "../escape.md", ".hidden.md"} {
		if _, err := s.Put(context.Background(), "id", name, []byte("x")); !errors.Is(err, domain.ErrInvalidFormat) {
			t.Errorf("Put(%q) = %v, want ErrInvalidFormat", name, err)
		}
	}
}

func TestPutAcceptsMarkdownVariants(t *testing.T) {
	s := New(t.TempDir())

	for _, name := range []string{"a.md", "B.MD", "notes.markdown"} {
		if _, err := s.Put(context.Background(), "id", name, []byte("x")); err != nil {
			t.Errorf("Put(%q) = %v, want nil", name, err)
		}
	}
}

func TestPutSizeCeiling(t *testing.T) {
	s := New(t.TempDir())

	big := make([]byte, MaxDocumentSize+1)
	if _, err := s.Put(context.Background(), "id", "big.md", big); !errors.Is(err, domain.ErrPayloadTooLarge) {
		t.Errorf("oversized put = %v, want ErrPayloadTooLarge", err)
	}

	exact := make([]byte, MaxDocumentSize)
	if _, err := s.Put(context.Background(), "id", "exact.md", exact); err != nil {
		t.Errorf("put at the ceiling = %v, want nil", err)
	}
}

func TestDeleteAndGetNotFound(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	if err := s.Delete(ctx, "id", "missing.md"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("delete missing = %v, want ErrNotFound", err)
	}
	if _, err := s.Get(ctx, "id", "missing.md"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("get missing = %v, want ErrNotFound", err)
	}

	if _, err := s.Put(ctx, "id", "a.md", []byte("x")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Delete(ctx, "id", "a.md"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if files, _ := s.List(ctx, "id"); len(files) != 0 {
		t.Errorf("expected empty namespace after delete, got %v", files)
	}
}

func TestLoadAll(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	if text, err := s.LoadAll(ctx, "absent"); err != nil || text != "" {
		t.Errorf("LoadAll on absent namespace = %q, %v; want empty, nil", text, err)
	}

	s.Put(ctx, "id", "b.md", []byte("second doc"))
	s.Put(ctx, "id", "a.md", []byte("first doc"))

	text, err := s.LoadAll(ctx, "id")
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if text != "first doc\n\nsecond doc" {
		t.Errorf("LoadAll = %q, want docs in listing order with blank-line separators", text)
	}
	if strings.Count(text, "\n\n") != 1 {
		t.Errorf("expected a single separator, got %q", text)
	}
}

func TestProvisionCreatesEmptyNamespace(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	if err := s.Provision(ctx, "fresh"); err != nil {
		t.Fatalf("provision: %v", err)
	}
	files, err := s.List(ctx, "fresh")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected empty namespace, got %v", files)
	}
}
