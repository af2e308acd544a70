package localfs

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
)

func TestSaveAndOpen(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := s.Save(context.Background(), "2024/doc-1.pdf", strings.NewReader("%PDF")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	rc, err := s.Open(context.Background(), "2024/doc-1.pdf")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	raw, _ := io.ReadAll(rc)
	if string(raw) != "%PDF" {
		t.Fatalf("unexpected content %q", raw)
	}
}

func TestOpenMissingIsNotFound(t *testing.T) {
	s, _ := New(t.TempDir())
	if _, err := s.Open(context.Background(), "missing.pdf"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRejectsTraversalKeys(t *testing.T) {
	s, _ := New(t.TempDir())
	for _, key := range []string{"", "../etc/passwd", "a/../../b"} {
		if err := s.Save(context.Background(), key, strings.NewReader("x")); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("Save(%q) expected invalid input, got %v", key, err)
		}
	}
}
