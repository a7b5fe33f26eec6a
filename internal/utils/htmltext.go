package utils

import (
	"strings"

	"golang.org/x/net/html"
)

// skippedTags are elements whose text content is markup plumbing, not email
// content, and would only waste summarization tokens.
var skippedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"head":     true,
	"title":    true,
	"iframe":   true,
	"noscript": true,
	"svg":      true,
	"nav":      true,
	"footer":   true,
	"header":   true,
	"aside":    true,
}

// StripHTML extracts readable text from an HTML email body. Used when a
// message carries no text/plain part.
func StripHTML(input string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(input))

	var sb strings.Builder
	depth := 0 // inside a skipped element when > 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return collapseWhitespace(sb.String())
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if skippedTags[string(name)] {
				depth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if skippedTags[string(name)] && depth > 0 {
				depth--
			}
		case html.TextToken:
			if depth == 0 {
				sb.Write(tokenizer.Text())
				sb.WriteByte(' ')
			}
		}
	}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
