package llm

import (
	"errors"
	"strings"
	"testing"

	"github.com/sundaylabs/sunday-digest/internal/core"
)

func TestParseItemResponse(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		wantErr        bool
		wantCategory   core.Category
		wantImportance int
	}{
		{
			name:           "bare json",
			input:          `{"category": "Newsletter", "topic": "AI Agents", "summary": "Frameworks are consolidating.", "importance": 4}`,
			wantCategory:   core.CategoryNewsletter,
			wantImportance: 4,
		},
		{
			name: "fenced json",
			input: "```json\n" +
				`{"category": "Noise", "topic": "Shoe sale", "summary": "Promo blast.", "importance": 1}` +
				"\n```",
			wantCategory:   core.CategoryNoise,
			wantImportance: 1,
		},
		{
			name:           "json wrapped in prose",
			input:          `Here is the analysis you asked for: {"category": "Personal", "topic": "Lunch", "summary": "A friend suggests lunch Friday.", "importance": 3} Hope that helps!`,
			wantCategory:   core.CategoryPersonal,
			wantImportance: 3,
		},
		{
			name:           "importance above scale is clamped",
			input:          `{"category": "Newsletter", "topic": "Big news", "summary": "Huge launch.", "importance": 9}`,
			wantCategory:   core.CategoryNewsletter,
			wantImportance: 5,
		},
		{
			name:           "negative importance is clamped",
			input:          `{"category": "Transactional", "topic": "Receipt", "summary": "Order confirmed.", "importance": -2}`,
			wantCategory:   core.CategoryTransactional,
			wantImportance: 1,
		},
		{
			name:    "unknown category",
			input:   `{"category": "Gossip", "topic": "t", "summary": "s", "importance": 3}`,
			wantErr: true,
		},
		{
			name:    "missing topic",
			input:   `{"category": "Newsletter", "summary": "s", "importance": 3}`,
			wantErr: true,
		},
		{
			name:    "missing importance",
			input:   `{"category": "Newsletter", "topic": "t", "summary": "s"}`,
			wantErr: true,
		},
		{
			name:    "not json at all",
			input:   "I could not process this email, sorry.",
			wantErr: true,
		},
		{
			name:    "truncated json",
			input:   `{"category": "Newsletter", "topic": "t", "summa`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := ParseItemResponse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error")
				}
				if !errors.Is(err, core.ErrMalformedOutput) {
					t.Errorf("error = %v, want ErrMalformedOutput", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseItemResponse: %v", err)
			}
			if item.Category != tt.wantCategory {
				t.Errorf("Category = %s, want %s", item.Category, tt.wantCategory)
			}
			if item.Importance != tt.wantImportance {
				t.Errorf("Importance = %d, want %d", item.Importance, tt.wantImportance)
			}
		})
	}
}

func TestParseDigestResponse(t *testing.T) {
	input := "```json\n" + `{
		"big_picture": "AI infrastructure spend keeps climbing.",
		"trends": [{"title": "Agents everywhere", "insight": "Every vendor shipped an agent SDK this week."}],
		"action_items": ["Evaluate the new SDKs"],
		"noise_filter": "Processed 12 inputs, dropped 7 promos."
	}` + "\n```"

	content, err := ParseDigestResponse(input)
	if err != nil {
		t.Fatalf("ParseDigestResponse: %v", err)
	}
	if content.BigPicture == "" {
		t.Error("BigPicture should be populated")
	}
	if len(content.Trends) != 1 || content.Trends[0].Title != "Agents everywhere" {
		t.Errorf("Trends = %+v", content.Trends)
	}
	if len(content.ActionItems) != 1 {
		t.Errorf("ActionItems = %+v", content.ActionItems)
	}
}

func TestParseDigestResponseRequiresBigPicture(t *testing.T) {
	_, err := ParseDigestResponse(`{"trends": [], "action_items": []}`)
	if !errors.Is(err, core.ErrMalformedOutput) {
		t.Errorf("error = %v, want ErrMalformedOutput", err)
	}
}

func TestExtractJSONRejectsEmptyResponse(t *testing.T) {
	if _, err := ExtractJSON("   "); !errors.Is(err, core.ErrMalformedOutput) {
		t.Errorf("error = %v, want ErrMalformedOutput", err)
	}
}

func TestBuildItemPromptIncludesEmailFields(t *testing.T) {
	prompt := BuildItemPrompt(&core.ItemInput{
		Sender:  "news@tldr.tech",
		Subject: "AI roundup",
		Body:    "Contents here.",
	})
	for _, want := range []string{"news@tldr.tech", "AI roundup", "Contents here.", "NEWSLETTERS ARE GOLD"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildDigestPromptUsesProfileAndDefaults(t *testing.T) {
	summaries := []*core.EmailSummary{
		{Topic: "AI Agents", Category: core.CategoryNewsletter, Summary: "SDKs shipped.", Importance: 4},
	}

	prompt := BuildDigestPrompt(summaries, &core.UserProfile{
		Role:       "CTO",
		FocusAreas: []string{"AI", "Defense"},
	})
	for _, want := range []string{"CTO", "AI, Defense", "[AI Agents]", "(Signal: 4/5)"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	// Empty persona fields fall back to generic values.
	prompt = BuildDigestPrompt(summaries, &core.UserProfile{})
	if !strings.Contains(prompt, "Professional") || !strings.Contains(prompt, "General Tech") {
		t.Error("prompt should fall back to default role and focus areas")
	}
}
