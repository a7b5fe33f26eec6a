package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"
)

func TestTruncateText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	tests := []struct {
		name    string
		input   string
		maxSize int
		want    string
	}{
		{"short text untouched", "hello", 100, "hello"},
		{"exact size untouched", "hello", 5, "hello"},
		{"plain truncation", "hello world", 5, "hello"},
		{"zero max size means unlimited", "hello", 0, "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tp.TruncateText(tt.input, tt.maxSize); got != tt.want {
				t.Errorf("TruncateText(%q, %d) = %q, want %q", tt.input, tt.maxSize, got, tt.want)
			}
		})
	}
}

func TestTruncateTextIsDeterministic(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())
	input := strings.Repeat("abcdefghij", 1000)

	first := tp.TruncateText(input, 8000)
	second := tp.TruncateText(input, 8000)
	if first != second {
		t.Error("same input must truncate to the same output")
	}
	if len(first) != 8000 {
		t.Errorf("truncated length = %d, want 8000", len(first))
	}
	if !strings.HasPrefix(input, first) {
		t.Error("truncation must keep a prefix of the input, with no marker appended")
	}
}

func TestTruncateTextRespectsUTF8Boundaries(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	// Each rune is 3 bytes; a 10 byte cut lands mid-rune.
	input := strings.Repeat("日", 10)
	got := tp.TruncateText(input, 10)
	if !utf8.ValidString(got) {
		t.Errorf("truncated text is not valid UTF-8: %q", got)
	}
	if len(got) != 9 {
		t.Errorf("truncated length = %d, want 9 (three whole runes)", len(got))
	}
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	if got := tp.SanitizeUTF8("clean text"); got != "clean text" {
		t.Errorf("clean text changed: %q", got)
	}

	dirty := "hello\xffworld"
	got := tp.SanitizeUTF8(dirty)
	if !utf8.ValidString(got) {
		t.Errorf("sanitized text is not valid UTF-8: %q", got)
	}
	if got != "helloworld" {
		t.Errorf("SanitizeUTF8(%q) = %q, want helloworld", dirty, got)
	}
}
