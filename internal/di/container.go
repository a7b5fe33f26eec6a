package di

import (
	"fmt"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/sundaylabs/sunday-digest/internal/adapters/ingest"
	"github.com/sundaylabs/sunday-digest/internal/config"
	"github.com/sundaylabs/sunday-digest/internal/core"
	"github.com/sundaylabs/sunday-digest/internal/factory"
	"github.com/sundaylabs/sunday-digest/internal/logging"
	"github.com/sundaylabs/sunday-digest/internal/ports"
	"github.com/sundaylabs/sunday-digest/internal/scheduler"
	"github.com/sundaylabs/sunday-digest/internal/utils"
	"github.com/sundaylabs/sunday-digest/internal/whitelist"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewChannelFactory); err != nil {
		return nil, err
	}

	// Register LLM client
	if err := container.Provide(func(f *factory.LLMFactory) (core.LLMClient, error) {
		return f.CreateLLMClient()
	}); err != nil {
		return nil, err
	}

	// Register store
	if err := container.Provide(func(f *factory.StoreFactory) (core.Store, error) {
		return f.CreateStore()
	}); err != nil {
		return nil, err
	}

	// Register delivery dispatcher
	if err := container.Provide(func(f *factory.ChannelFactory, logger *zap.Logger) *core.Dispatcher {
		return core.NewDispatcher(f.CreateChannels(), logger)
	}); err != nil {
		return nil, err
	}

	// Register pipeline service
	if err := container.Provide(func(
		llm core.LLMClient,
		store core.Store,
		dispatcher *core.Dispatcher,
		logger *zap.Logger,
		textProcessor *utils.TextProcessor,
		cfg *config.Config,
	) *core.PipelineService {
		pipelineCfg := cfg.GetPipeline()
		return core.NewPipelineService(
			llm,
			store,
			dispatcher,
			logger,
			textProcessor,
			pipelineCfg.MaxBodyChars,
			pipelineCfg.ImportanceThreshold,
			pipelineCfg.DigestPeriodDays,
		)
	}); err != nil {
		return nil, err
	}

	// Register scheduler
	if err := container.Provide(func(
		pipeline *core.PipelineService,
		store core.Store,
		logger *zap.Logger,
		cfg *config.Config,
	) *scheduler.Scheduler {
		return scheduler.New(pipeline, store, logger, cfg.GetScheduler().MaxConcurrentUsers)
	}); err != nil {
		return nil, err
	}

	// Register whitelist resolver
	if err := container.Provide(whitelist.NewResolver); err != nil {
		return nil, err
	}

	// Register ingest server
	if err := container.Provide(func(
		store core.Store,
		resolver *whitelist.Resolver,
		logger *zap.Logger,
		cfg *config.Config,
	) (ports.IngestServer, error) {
		ingestCfg := cfg.GetIngest()
		switch ingestCfg.Mode {
		case "", "webhook":
			return ingest.NewWebhookServer(store, resolver, logger, ingestCfg.ListenAddress, ingestCfg.AuthToken), nil
		case "imap":
			return ingest.NewIMAPPoller(store, resolver, logger, cfg.GetIMAP()), nil
		default:
			return nil, fmt.Errorf("unsupported ingest mode: %s", ingestCfg.Mode)
		}
	}); err != nil {
		return nil, err
	}

	return container, nil
}
