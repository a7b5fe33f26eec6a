package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sundaylabs/sunday-digest/internal/core"
)

// itemResponse is the JSON shape stage 1 must return
type itemResponse struct {
	Category   string `json:"category"`
	Topic      string `json:"topic"`
	Summary    string `json:"summary"`
	Importance int    `json:"importance"`
}

// ExtractJSON pulls a JSON object out of a raw model response. Models wrap
// their payload in markdown fences or prose often enough that a strict
// unmarshal alone loses good answers, so fall back to scanning for the
// outermost brace pair.
func ExtractJSON(text string) (string, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if json.Valid([]byte(cleaned)) {
		return cleaned, nil
	}

	start := strings.IndexByte(cleaned, '{')
	end := strings.LastIndexByte(cleaned, '}')
	if start < 0 || end <= start {
		return "", fmt.Errorf("%w: no JSON object in response", core.ErrMalformedOutput)
	}

	candidate := cleaned[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", fmt.Errorf("%w: extracted text is not valid JSON", core.ErrMalformedOutput)
	}
	return candidate, nil
}

// ParseItemResponse decodes a stage 1 response into a structured summary.
// Anything that does not decode into the expected record is reported as
// ErrMalformedOutput so the orchestrator can skip and retry later.
func ParseItemResponse(text string) (*core.ItemSummary, error) {
	payload, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	var resp itemResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedOutput, err)
	}

	if !core.ValidCategory(resp.Category) {
		return nil, fmt.Errorf("%w: unknown category %q", core.ErrMalformedOutput, resp.Category)
	}
	if resp.Topic == "" || resp.Summary == "" {
		return nil, fmt.Errorf("%w: missing topic or summary", core.ErrMalformedOutput)
	}
	if resp.Importance == 0 {
		return nil, fmt.Errorf("%w: missing importance", core.ErrMalformedOutput)
	}

	return &core.ItemSummary{
		Category:   core.Category(resp.Category),
		Topic:      resp.Topic,
		Summary:    resp.Summary,
		Importance: core.ClampImportance(resp.Importance),
	}, nil
}

// ParseDigestResponse decodes a stage 2 response into digest content
func ParseDigestResponse(text string) (*core.DigestContent, error) {
	payload, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	var content core.DigestContent
	if err := json.Unmarshal([]byte(payload), &content); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedOutput, err)
	}

	if content.BigPicture == "" {
		return nil, fmt.Errorf("%w: missing big_picture", core.ErrMalformedOutput)
	}

	return &content, nil
}
