package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/sundaylabs/sunday-digest/internal/core"
	"github.com/sundaylabs/sunday-digest/internal/llm"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiClient is an implementation of the LLMClient interface using Google
// Gemini. Stage 1 and stage 2 can run on different models; the item model is
// typically the heavier one since it sees raw email text.
type GeminiClient struct {
	client      *genai.Client
	itemModel   *genai.GenerativeModel
	digestModel *genai.GenerativeModel
	logger      *zap.Logger
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(
	apiKey string,
	itemModelName string,
	digestModelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) (*GeminiClient, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	configure := func(name string) *genai.GenerativeModel {
		model := client.GenerativeModel(name)
		model.SetTemperature(temperature)
		model.SetTopP(topP)
		model.SetMaxOutputTokens(int32(maxTokens))
		model.ResponseMIMEType = "application/json"
		return model
	}

	return &GeminiClient{
		client:      client,
		itemModel:   configure(itemModelName),
		digestModel: configure(digestModelName),
		logger:      logger,
	}, nil
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// SummarizeItem turns one email's text into a scored structured summary
func (c *GeminiClient) SummarizeItem(ctx context.Context, input *core.ItemInput) (*core.ItemSummary, error) {
	text, err := c.generate(ctx, c.itemModel, llm.BuildItemPrompt(input))
	if err != nil {
		return nil, err
	}
	return llm.ParseItemResponse(text)
}

// SynthesizeDigest fuses the eligible summaries into one digest payload
func (c *GeminiClient) SynthesizeDigest(ctx context.Context, summaries []*core.EmailSummary, profile *core.UserProfile) (*core.DigestContent, error) {
	text, err := c.generate(ctx, c.digestModel, llm.BuildDigestPrompt(summaries, profile))
	if err != nil {
		return nil, err
	}
	return llm.ParseDigestResponse(text)
}

func (c *GeminiClient) generate(ctx context.Context, model *genai.GenerativeModel, prompt string) (string, error) {
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from Gemini")
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text += string(t)
		}
	}

	if text == "" {
		return "", fmt.Errorf("no text content in Gemini response")
	}
	return text, nil
}
