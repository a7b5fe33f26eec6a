package bedrock

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/sundaylabs/sunday-digest/internal/config"
	"github.com/sundaylabs/sunday-digest/internal/core"
	"go.uber.org/zap"
)

// Factory creates new instances of BedrockClient
type Factory struct {
	cfg    config.BedrockConfig
	logger *zap.Logger
}

// NewFactory creates a new factory for BedrockClient instances
func NewFactory(cfg config.BedrockConfig, logger *zap.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger}
}

// CreateLLMClient creates a new BedrockClient
func (f *Factory) CreateLLMClient() (core.LLMClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(f.cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := bedrockruntime.NewFromConfig(awsCfg)

	return NewBedrockClient(
		client,
		f.cfg.ItemModelID,
		f.cfg.DigestModelID,
		f.cfg.MaxTokens,
		f.cfg.Temperature,
		f.cfg.TopP,
		f.logger,
	), nil
}
