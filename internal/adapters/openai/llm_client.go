package openai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/sundaylabs/sunday-digest/internal/core"
	"github.com/sundaylabs/sunday-digest/internal/llm"
	"go.uber.org/zap"
)

// OpenAIClient is an implementation of the LLMClient interface using OpenAI
type OpenAIClient struct {
	client      *openai.Client
	itemModel   string
	digestModel string
	maxTokens   int
	temperature float32
	topP        float32
	logger      *zap.Logger
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(
	apiKey string,
	itemModel string,
	digestModel string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) *OpenAIClient {
	return &OpenAIClient{
		client:      openai.NewClient(apiKey),
		itemModel:   itemModel,
		digestModel: digestModel,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		logger:      logger,
	}
}

// SummarizeItem turns one email's text into a scored structured summary
func (c *OpenAIClient) SummarizeItem(ctx context.Context, input *core.ItemInput) (*core.ItemSummary, error) {
	text, err := c.complete(ctx, c.itemModel, llm.BuildItemPrompt(input))
	if err != nil {
		return nil, err
	}
	return llm.ParseItemResponse(text)
}

// SynthesizeDigest fuses the eligible summaries into one digest payload
func (c *OpenAIClient) SynthesizeDigest(ctx context.Context, summaries []*core.EmailSummary, profile *core.UserProfile) (*core.DigestContent, error) {
	text, err := c.complete(ctx, c.digestModel, llm.BuildDigestPrompt(summaries, profile))
	if err != nil {
		return nil, err
	}
	return llm.ParseDigestResponse(text)
}

func (c *OpenAIClient) complete(ctx context.Context, model, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a newsletter analysis system. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}
