package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sundaylabs/sunday-digest/internal/config"
	"github.com/sundaylabs/sunday-digest/internal/core"
	"github.com/sundaylabs/sunday-digest/internal/factory"
	"github.com/sundaylabs/sunday-digest/internal/logging"
	"github.com/sundaylabs/sunday-digest/internal/utils"
	"go.uber.org/zap"
)

var (
	// Run flags
	userID    = flag.String("user", "", "User ID to run the digest pipeline for (required)")
	redeliver = flag.Bool("redeliver", false, "Only re-deliver unsent digests, do not summarize or synthesize")

	// LLM provider flags
	provider    = flag.String("provider", "gemini", "LLM provider (gemini, openai, bedrock)")
	maxTokens   = flag.Int("max-tokens", 2048, "Maximum tokens for LLM response")
	temperature = flag.Float64("temperature", 0.3, "Temperature for LLM generation")
	topP        = flag.Float64("top-p", 0.9, "Top-p for LLM generation")

	// Gemini flags
	geminiAPIKey      = flag.String("gemini-api-key", "", "API key for Google Gemini")
	geminiItemModel   = flag.String("gemini-item-model", "gemini-1.5-pro", "Gemini model for per-email summaries")
	geminiDigestModel = flag.String("gemini-digest-model", "gemini-1.5-flash", "Gemini model for digest synthesis")

	// OpenAI flags
	openaiAPIKey      = flag.String("openai-api-key", "", "API key for OpenAI")
	openaiItemModel   = flag.String("openai-item-model", "gpt-4o", "OpenAI model for per-email summaries")
	openaiDigestModel = flag.String("openai-digest-model", "gpt-4o-mini", "OpenAI model for digest synthesis")

	// Bedrock flags
	bedrockRegion      = flag.String("bedrock-region", "us-east-1", "AWS region for Bedrock")
	bedrockItemModel   = flag.String("bedrock-item-model", "anthropic.claude-v2", "Bedrock model for per-email summaries")
	bedrockDigestModel = flag.String("bedrock-digest-model", "anthropic.claude-v2", "Bedrock model for digest synthesis")

	// Pipeline flags
	maxBodyChars        = flag.Int("max-body-chars", 8000, "Maximum email body characters to send to the LLM")
	importanceThreshold = flag.Int("threshold", 2, "Minimum importance a summary must exceed to reach the digest")

	// Store flags
	storeType  = flag.String("store", "sqlite", "Store type (memory, sqlite, mysql)")
	sqlitePath = flag.String("sqlite-path", "./data/sunday-digest.db", "Path to the SQLite database file")
	mysqlDSN   = flag.String("mysql-dsn", "", "MySQL DSN (required when -store=mysql)")

	// Logging flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
	configFile = flag.String("config", "", "Path to config file (overrides command line flags)")
)

func main() {
	flag.Parse()

	// Initialize logger
	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *userID == "" {
		logger.Fatal("Missing required -user flag")
	}

	var cfg *config.Config
	if *configFile != "" {
		cfg, err = config.NewFromFile(*configFile)
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
	} else {
		cfg = createConfigFromFlags()
	}

	// Initialize store
	storeFactory := factory.NewStoreFactory(cfg, logger)
	store, err := storeFactory.CreateStore()
	if err != nil {
		logger.Fatal("Failed to create store", zap.Error(err))
	}

	// Initialize LLM client
	llmFactory := factory.NewLLMFactory(cfg, logger)
	llmClient, err := llmFactory.CreateLLMClient()
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	// Initialize delivery channels
	channelFactory := factory.NewChannelFactory(cfg, logger)
	dispatcher := core.NewDispatcher(channelFactory.CreateChannels(), logger)

	pipelineCfg := cfg.GetPipeline()
	service := core.NewPipelineService(
		llmClient,
		store,
		dispatcher,
		logger,
		utils.NewTextProcessor(logger),
		pipelineCfg.MaxBodyChars,
		pipelineCfg.ImportanceThreshold,
		pipelineCfg.DigestPeriodDays,
	)

	ctx := context.Background()
	startTime := time.Now()

	if *redeliver {
		delivered, err := service.RedeliverUnsent(ctx, *userID)
		if err != nil {
			logger.Fatal("Redelivery failed", zap.Error(err))
		}
		fmt.Printf("\n=== Redelivery ===\n")
		fmt.Printf("User: %s\n", *userID)
		fmt.Printf("Digests delivered: %d\n", delivered)
		fmt.Printf("Processing time: %v\n", time.Since(startTime))
		closeResources(llmClient, store, logger)
		return
	}

	outcome, err := service.Run(ctx, *userID)
	if err != nil {
		logger.Fatal("Pipeline run failed", zap.Error(err))
	}

	// Print results
	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("User: %s\n", outcome.UserID)
	fmt.Printf("Status: %s\n", outcome.Status)
	fmt.Printf("Emails summarized: %d\n", outcome.EmailsSummarized)
	fmt.Printf("Emails skipped: %d\n", outcome.EmailsSkipped)
	if outcome.DigestID != "" {
		fmt.Printf("Digest ID: %s\n", outcome.DigestID)
		fmt.Printf("Delivered: %t\n", outcome.Delivered)
	}
	fmt.Printf("Processing time: %v\n", time.Since(startTime))

	closeResources(llmClient, store, logger)
}

func closeResources(llmClient core.LLMClient, store core.Store, logger *zap.Logger) {
	if closer, ok := llmClient.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close store", zap.Error(err))
		}
	}
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	// Set LLM provider
	v.Set("llm.provider", *provider)

	// Set provider-specific configuration
	switch *provider {
	case "gemini":
		v.Set("gemini.api_key", *geminiAPIKey)
		v.Set("gemini.item_model", *geminiItemModel)
		v.Set("gemini.digest_model", *geminiDigestModel)
		v.Set("gemini.max_tokens", *maxTokens)
		v.Set("gemini.temperature", *temperature)
		v.Set("gemini.top_p", *topP)
	case "openai":
		v.Set("openai.api_key", *openaiAPIKey)
		v.Set("openai.item_model", *openaiItemModel)
		v.Set("openai.digest_model", *openaiDigestModel)
		v.Set("openai.max_tokens", *maxTokens)
		v.Set("openai.temperature", *temperature)
		v.Set("openai.top_p", *topP)
	case "bedrock":
		v.Set("bedrock.region", *bedrockRegion)
		v.Set("bedrock.item_model_id", *bedrockItemModel)
		v.Set("bedrock.digest_model_id", *bedrockDigestModel)
		v.Set("bedrock.max_tokens", *maxTokens)
		v.Set("bedrock.temperature", *temperature)
		v.Set("bedrock.top_p", *topP)
	}

	// Set pipeline configuration
	v.Set("pipeline.max_body_chars", *maxBodyChars)
	v.Set("pipeline.importance_threshold", *importanceThreshold)

	// Set store configuration
	v.Set("store.type", *storeType)
	v.Set("store.sqlite_path", *sqlitePath)
	v.Set("store.mysql_dsn", *mysqlDSN)

	return config.NewFromViper(v)
}
