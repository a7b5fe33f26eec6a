package config

import (
	"time"
)

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ItemModel   string
	DigestModel string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ItemModel   string
	DigestModel string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region        string
	ItemModelID   string
	DigestModelID string
	MaxTokens     int
	Temperature   float32
	TopP          float32
}

// PipelineConfig represents the tuning knobs of the summarization pipeline
type PipelineConfig struct {
	MaxBodyChars        int
	ImportanceThreshold int
	DigestPeriodDays    int
}

// StoreConfig represents the persistence configuration
type StoreConfig struct {
	Type       string
	SQLitePath string
	MySQLDSN   string
}

// SMTPConfig represents the outbound email channel configuration
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	FromName string
}

// TelegramConfig represents the chat channel configuration
type TelegramConfig struct {
	Enabled        bool
	BotToken       string
	APIBaseURL     string
	TeaserMaxChars int
}

// SchedulerConfig represents the per-user scheduling configuration
type SchedulerConfig struct {
	Enabled            bool
	MaxConcurrentUsers int
}

// IngestConfig represents the inbound email configuration. Mode selects the
// ingest implementation: webhook (push from a mail edge) or imap (mailbox
// polling).
type IngestConfig struct {
	Enabled       bool
	Mode          string
	ListenAddress string
	AuthToken     string
}

// IMAPConfig represents the mailbox polling configuration
type IMAPConfig struct {
	Address      string
	Username     string
	Password     string
	Mailbox      string
	PollInterval time.Duration
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ItemModel:   c.GetString("gemini.item_model"),
		DigestModel: c.GetString("gemini.digest_model"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ItemModel:   c.GetString("openai.item_model"),
		DigestModel: c.GetString("openai.digest_model"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:        c.GetString("bedrock.region"),
		ItemModelID:   c.GetString("bedrock.item_model_id"),
		DigestModelID: c.GetString("bedrock.digest_model_id"),
		MaxTokens:     c.GetInt("bedrock.max_tokens"),
		Temperature:   float32(c.GetFloat64("bedrock.temperature")),
		TopP:          float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetPipeline returns the pipeline configuration
func (c *Config) GetPipeline() PipelineConfig {
	return PipelineConfig{
		MaxBodyChars:        c.GetInt("pipeline.max_body_chars"),
		ImportanceThreshold: c.GetInt("pipeline.importance_threshold"),
		DigestPeriodDays:    c.GetInt("pipeline.digest_period_days"),
	}
}

// GetStore returns the persistence configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:       c.GetString("store.type"),
		SQLitePath: c.GetString("store.sqlite_path"),
		MySQLDSN:   c.GetString("store.mysql_dsn"),
	}
}

// GetSMTP returns the outbound email configuration
func (c *Config) GetSMTP() SMTPConfig {
	return SMTPConfig{
		Host:     c.GetString("smtp.host"),
		Port:     c.GetInt("smtp.port"),
		Username: c.GetString("smtp.username"),
		Password: c.GetString("smtp.password"),
		FromName: c.GetString("smtp.from_name"),
	}
}

// GetTelegram returns the Telegram channel configuration
func (c *Config) GetTelegram() TelegramConfig {
	return TelegramConfig{
		Enabled:        c.GetBool("telegram.enabled"),
		BotToken:       c.GetString("telegram.bot_token"),
		APIBaseURL:     c.GetString("telegram.api_base_url"),
		TeaserMaxChars: c.GetInt("telegram.teaser_max_chars"),
	}
}

// GetScheduler returns the scheduler configuration
func (c *Config) GetScheduler() SchedulerConfig {
	return SchedulerConfig{
		Enabled:            c.GetBool("scheduler.enabled"),
		MaxConcurrentUsers: c.GetInt("scheduler.max_concurrent_users"),
	}
}

// GetIngest returns the inbound email configuration
func (c *Config) GetIngest() IngestConfig {
	return IngestConfig{
		Enabled:       c.GetBool("ingest.enabled"),
		Mode:          c.GetString("ingest.mode"),
		ListenAddress: c.GetString("ingest.listen_address"),
		AuthToken:     c.GetString("ingest.auth_token"),
	}
}

// GetIMAP returns the mailbox polling configuration. A malformed poll
// interval falls back to the five minute default.
func (c *Config) GetIMAP() IMAPConfig {
	interval, err := c.GetDuration("ingest.imap.poll_interval")
	if err != nil {
		interval = 5 * time.Minute
	}
	return IMAPConfig{
		Address:      c.GetString("ingest.imap.address"),
		Username:     c.GetString("ingest.imap.username"),
		Password:     c.GetString("ingest.imap.password"),
		Mailbox:      c.GetString("ingest.imap.mailbox"),
		PollInterval: interval,
	}
}
