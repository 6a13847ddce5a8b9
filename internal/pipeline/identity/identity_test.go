package identity

import (
	"strings"
	"testing"
)

func TestChunkId(t *testing.T) {
	tests := []struct {
		docId    string
		page     int
		index    int
		expected string
	}{
		{"doc-1", 1, 0, "doc-1#p1#c0"},
		{"doc-1", 0, 12, "doc-1#p0#c12"},
		{"file_9f", 42, 3, "file_9f#p42#c3"},
	}

	for _, tt := range tests {
		if got := ChunkId(tt.docId, tt.page, tt.index); got != tt.expected {
			t.Errorf("ChunkId(%s, %d, %d) = %s; want %s", tt.docId, tt.page, tt.index, got, tt.expected)
		}
	}
}

func TestContentHash_Deterministic(t *testing.T) {
	first := ContentHash("doc-1", 2, 5, "The quick brown fox")
	second := ContentHash("doc-1", 2, 5, "The quick brown fox")
	if first != second {
		t.Error("Equal inputs must produce equal hashes")
	}
	if len(first) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(first))
	}
	if first != strings.ToLower(first) {
		t.Error("Expected lowercase hex encoding")
	}
}

func TestContentHash_WhitespaceInvariant(t *testing.T) {
	base := ContentHash("doc-1", 1, 0, "alpha beta gamma")

	variants := []string{
		"alpha  beta gamma",
		"alpha\tbeta\ngamma",
		"  alpha beta gamma  ",
		"alpha \n\n beta \t gamma",
	}
	for _, v := range variants {
		if got := ContentHash("doc-1", 1, 0, v); got != base {
			t.Errorf("Whitespace-only change altered the hash for %q", v)
		}
	}

	if ContentHash("doc-1", 1, 0, "alpha beta gamm a") == base {
		t.Error("Non-whitespace change must alter the hash")
	}
}

func TestContentHash_IdentityFieldsMatter(t *testing.T) {
	base := ContentHash("doc-1", 1, 0, "text")
	if ContentHash("doc-2", 1, 0, "text") == base {
		t.Error("Different doc id must alter the hash")
	}
	if ContentHash("doc-1", 2, 0, "text") == base {
		t.Error("Different page must alter the hash")
	}
	if ContentHash("doc-1", 1, 1, "text") == base {
		t.Error("Different chunk index must alter the hash")
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"a  b   c", "a b c"},
		{"  leading and trailing  ", "leading and trailing"},
		{"line\nbreaks\tand tabs", "line breaks and tabs"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := NormalizeText(tt.in); got != tt.expected {
			t.Errorf("NormalizeText(%q) = %q; want %q", tt.in, got, tt.expected)
		}
	}
}
