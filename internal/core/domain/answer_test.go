package domain

import (
	"strings"
	"testing"
)

func TestPreview(t *testing.T) {
	long := strings.Repeat("a", 200)

	if got := Preview(long, SourcePreviewLength); len(got) != 150 {
		t.Errorf("expected 150 characters, got %d", len(got))
	}
	if got := Preview("short", SourcePreviewLength); got != "short" {
		t.Errorf("expected short text unchanged, got %q", got)
	}
}

func TestPreview_MultiByte(t *testing.T) {
	text := strings.Repeat("é", 10)

	got := Preview(text, 4)
	if got != "éééé" {
		t.Errorf("expected 4 runes, got %q", got)
	}
}
