package extract

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestPages_PlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	content := "scope of works\nexcavation commences monday"
	if err := os.WriteFile(path, []byte(content), 0640); err != nil {
		t.Fatal(err)
	}

	pages, err := Pages(path)
	if err != nil {
		t.Fatalf("Pages() error: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("got %d pages, expected 1", len(pages))
	}
	if pages[0].Number != 1 {
		t.Errorf("page number = %d, expected 1", pages[0].Number)
	}
	if pages[0].Text != content {
		t.Errorf("text = %q, expected the file content", pages[0].Text)
	}
}

func TestPages_UnsupportedFormat(t *testing.T) {
	_, err := Pages("upload.xlsx")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestPages_MissingPDF(t *testing.T) {
	if _, err := Pages(filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
