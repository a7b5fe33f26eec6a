package factory

import (
	"fmt"

	"github.com/sundaylabs/sunday-digest/internal/adapters/bedrock"
	"github.com/sundaylabs/sunday-digest/internal/adapters/gemini"
	"github.com/sundaylabs/sunday-digest/internal/adapters/openai"
	"github.com/sundaylabs/sunday-digest/internal/config"
	"github.com/sundaylabs/sunday-digest/internal/core"
	"go.uber.org/zap"
)

// LLMFactory creates LLM clients
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateLLMClient creates a new LLM client based on the configuration
func (f *LLMFactory) CreateLLMClient() (core.LLMClient, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "gemini":
		return gemini.NewFactory(f.cfg.GetGemini(), f.logger).CreateLLMClient()
	case "openai":
		return openai.NewFactory(f.cfg.GetOpenAI(), f.logger).CreateLLMClient()
	case "bedrock":
		return bedrock.NewFactory(f.cfg.GetBedrock(), f.logger).CreateLLMClient()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}
