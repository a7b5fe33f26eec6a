package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/sundaylabs/sunday-digest/internal/core"
	"github.com/sundaylabs/sunday-digest/internal/llm"
	"go.uber.org/zap"
)

// BedrockClient is an implementation of the LLMClient interface using Amazon
// Bedrock
type BedrockClient struct {
	client        *bedrockruntime.Client
	itemModelID   string
	digestModelID string
	maxTokens     int
	temperature   float32
	topP          float32
	logger        *zap.Logger
}

// NewBedrockClient creates a new Bedrock client
func NewBedrockClient(
	client *bedrockruntime.Client,
	itemModelID string,
	digestModelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) *BedrockClient {
	return &BedrockClient{
		client:        client,
		itemModelID:   itemModelID,
		digestModelID: digestModelID,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		logger:        logger,
	}
}

// SummarizeItem turns one email's text into a scored structured summary
func (c *BedrockClient) SummarizeItem(ctx context.Context, input *core.ItemInput) (*core.ItemSummary, error) {
	text, err := c.invoke(ctx, c.itemModelID, llm.BuildItemPrompt(input))
	if err != nil {
		return nil, err
	}
	return llm.ParseItemResponse(text)
}

// SynthesizeDigest fuses the eligible summaries into one digest payload
func (c *BedrockClient) SynthesizeDigest(ctx context.Context, summaries []*core.EmailSummary, profile *core.UserProfile) (*core.DigestContent, error) {
	text, err := c.invoke(ctx, c.digestModelID, llm.BuildDigestPrompt(summaries, profile))
	if err != nil {
		return nil, err
	}
	return llm.ParseDigestResponse(text)
}

func isAnthropicModel(modelID string) bool {
	return strings.HasPrefix(modelID, "anthropic.")
}

func isAmazonTitanModel(modelID string) bool {
	return strings.HasPrefix(modelID, "amazon.titan")
}

func (c *BedrockClient) invoke(ctx context.Context, modelID, prompt string) (string, error) {
	var payload []byte
	var err error

	switch {
	case isAnthropicModel(modelID):
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":               fmt.Sprintf("\n\nHuman: %s\n\nAssistant:", prompt),
			"max_tokens_to_sample": c.maxTokens,
			"temperature":          c.temperature,
			"top_p":                c.topP,
		})
	case isAmazonTitanModel(modelID):
		payload, err = json.Marshal(map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": c.maxTokens,
				"temperature":   c.temperature,
				"topP":          c.topP,
			},
		})
	default:
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  c.maxTokens,
			"temperature": c.temperature,
			"top_p":       c.topP,
		})
	}
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &modelID,
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	switch {
	case isAnthropicModel(modelID):
		var claudeResp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(resp.Body, &claudeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		return claudeResp.Completion, nil
	case isAmazonTitanModel(modelID):
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(resp.Body, &titanResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return "", fmt.Errorf("empty response from Titan model")
		}
		return titanResp.Results[0].OutputText, nil
	default:
		var genericResp struct {
			Output   string `json:"output"`
			Text     string `json:"text"`
			Response string `json:"response"`
		}
		if err := json.Unmarshal(resp.Body, &genericResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal generic response: %w", err)
		}
		switch {
		case genericResp.Output != "":
			return genericResp.Output, nil
		case genericResp.Text != "":
			return genericResp.Text, nil
		case genericResp.Response != "":
			return genericResp.Response, nil
		default:
			return string(resp.Body), nil
		}
	}
}
