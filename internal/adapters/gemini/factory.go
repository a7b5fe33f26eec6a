package gemini

import (
	"github.com/sundaylabs/sunday-digest/internal/config"
	"github.com/sundaylabs/sunday-digest/internal/core"
	"go.uber.org/zap"
)

// Factory creates new instances of GeminiClient
type Factory struct {
	cfg    config.GeminiConfig
	logger *zap.Logger
}

// NewFactory creates a new factory for GeminiClient instances
func NewFactory(cfg config.GeminiConfig, logger *zap.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger}
}

// CreateLLMClient creates a new GeminiClient
func (f *Factory) CreateLLMClient() (core.LLMClient, error) {
	return NewGeminiClient(
		f.cfg.APIKey,
		f.cfg.ItemModel,
		f.cfg.DigestModel,
		f.cfg.MaxTokens,
		f.cfg.Temperature,
		f.cfg.TopP,
		f.logger,
	)
}
