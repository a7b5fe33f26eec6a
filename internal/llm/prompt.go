// Package llm holds the prompt templates and response parsing shared by the
// provider adapters. The classification rules encoded in the stage 1 prompt
// are product behavior, not provider behavior, so they live here once instead
// of being copied into every client.
package llm

import (
	"fmt"
	"strings"

	"github.com/sundaylabs/sunday-digest/internal/core"
)

const itemPromptFormat = `ROLE: You are an Expert Content Analyst for a Newsletter Aggregator.

OBJECTIVE: Extract the core value from this email.

CRITICAL RULES:
1. **NEWSLETTERS ARE GOLD.** Unlike standard filters, you MUST treat Newsletters (Substack, beehiiv, Medium, Industry Reports) as HIGH PRIORITY content.
2. Ignore transactional fluff (password resets, login codes, delivery updates) -> Mark as 'Noise'.
3. Ignore pure marketing spam (Buy now 50%% off) -> Mark as 'Noise'.
4. If it's a Newsletter: Extract the main topic and a detailed summary of the insights.

INPUT EMAIL:
From: %s
Subject: %s
Body: %s

OUTPUT JSON format only:
{
    "category": "Newsletter" | "Personal" | "Transactional" | "Noise",
    "topic": "Short title of the topic (e.g. 'AI Agent Frameworks' or 'Crypto Market Update')",
    "summary": "3-4 sentences packed with the actual facts/insights from the text. Be specific.",
    "importance": 1-5 (5 = High Signal Newsletter, 1 = Spam/Noise)
}`

const digestPromptFormat = `ROLE: You are an Elite Strategic Advisor for a %s.

USER PROFILE & INTERESTS:
The user is a polymath with a diverse portfolio of interests.
**Their Focus Areas:** %s.

INPUT DATA:
A list of pre-summarized items from various newsletters (SaaS, Defense, Finance, etc.).

TASK:
Create a "Deep-Dive Strategic Brief" that respects the DIVERSITY of the input.

CRITICAL INSTRUCTIONS (The "Smart Context" Logic):
1. **MATCH THE LENS:** When analyzing a trend, view it through the lens of the specific Focus Area it belongs to.
2. **SYNTHESIZE, DON'T LIST:** If you see 3 items about Defense, combine them into ONE deep insight.
3. **DENSITY & DEPTH:** Write comprehensive paragraphs (100-150 words per trend). Explain the "So What?"

OUTPUT JSON:
{
  "big_picture": "A rich 3-4 sentence editorial synthesizing the macro vibe across ALL interests.",
  "trends": [
    {
      "title": "Insight Headline (Specific to the Industry)",
      "insight": "Deep analysis. Context + Strategic Implication for that specific Focus Area."
    }
  ],
  "action_items": ["Strategic task 1", "Review item 2"],
  "noise_filter": "Processed X inputs..."
}

DATA:
%s

Respond only with the JSON object and nothing else.`

// BuildItemPrompt formats the stage 1 prompt for a single email. The body is
// expected to already be truncated to the configured character budget.
func BuildItemPrompt(input *core.ItemInput) string {
	return fmt.Sprintf(itemPromptFormat, input.Sender, input.Subject, input.Body)
}

// BuildDigestPrompt formats the stage 2 prompt from the eligible summaries and
// the user's persona.
func BuildDigestPrompt(summaries []*core.EmailSummary, profile *core.UserProfile) string {
	role := profile.Role
	if role == "" {
		role = "Professional"
	}

	focusAreas := "General Tech"
	if len(profile.FocusAreas) > 0 {
		focusAreas = strings.Join(profile.FocusAreas, ", ")
	}

	var sb strings.Builder
	for _, s := range summaries {
		sb.WriteString(fmt.Sprintf("- [%s] (%s): %s (Signal: %d/5)\n\n", s.Topic, s.Category, s.Summary, s.Importance))
	}

	return fmt.Sprintf(digestPromptFormat, role, focusAreas, sb.String())
}
