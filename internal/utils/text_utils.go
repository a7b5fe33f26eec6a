package utils

import (
	"unicode/utf8"

	"go.uber.org/zap"
)

// TextProcessor provides utilities for processing text
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
	}
}

// TruncateText takes the first maxSize bytes of text, backing off to the
// nearest valid UTF-8 boundary. Truncation is positional on purpose: the
// token cost of a stage 1 call must be bounded deterministically.
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}

	tp.logger.Debug("Email body truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated
}

// SanitizeUTF8 ensures the string contains only valid UTF-8 characters
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	result := make([]rune, 0, len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(text[i:])
			if size == 1 {
				// Skip invalid UTF-8 sequences
				continue
			}
		}
		result = append(result, r)
	}

	return string(result)
}

// ProcessText truncates and sanitizes text in one operation
func (tp *TextProcessor) ProcessText(text string, maxSize int) string {
	return tp.SanitizeUTF8(tp.TruncateText(text, maxSize))
}
