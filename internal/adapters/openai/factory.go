package openai

import (
	"github.com/sundaylabs/sunday-digest/internal/config"
	"github.com/sundaylabs/sunday-digest/internal/core"
	"go.uber.org/zap"
)

// Factory creates new instances of OpenAIClient
type Factory struct {
	cfg    config.OpenAIConfig
	logger *zap.Logger
}

// NewFactory creates a new factory for OpenAIClient instances
func NewFactory(cfg config.OpenAIConfig, logger *zap.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger}
}

// CreateLLMClient creates a new OpenAIClient
func (f *Factory) CreateLLMClient() (core.LLMClient, error) {
	return NewOpenAIClient(
		f.cfg.APIKey,
		f.cfg.ItemModel,
		f.cfg.DigestModel,
		f.cfg.MaxTokens,
		f.cfg.Temperature,
		f.cfg.TopP,
		f.logger,
	), nil
}
