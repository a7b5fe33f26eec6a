package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/sunday-digest/")
	v.AddConfigPath("$HOME/.sunday-digest")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("SUNDAY_DIGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromFile creates a configuration instance from an explicit config file
// path. Unlike New, a missing or unreadable file is an error.
func NewFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("SUNDAY_DIGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// LLM provider defaults
	v.SetDefault("llm.provider", "gemini")

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.item_model", "gemini-1.5-pro")
	v.SetDefault("gemini.digest_model", "gemini-1.5-flash")
	v.SetDefault("gemini.max_tokens", 4096)
	v.SetDefault("gemini.temperature", 0.2)
	v.SetDefault("gemini.top_p", 0.9)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.item_model", "gpt-4o")
	v.SetDefault("openai.digest_model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 4096)
	v.SetDefault("openai.temperature", 0.2)
	v.SetDefault("openai.top_p", 0.9)

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.item_model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.digest_model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 4096)
	v.SetDefault("bedrock.temperature", 0.2)
	v.SetDefault("bedrock.top_p", 0.9)

	// Pipeline defaults
	v.SetDefault("pipeline.max_body_chars", 8000)
	v.SetDefault("pipeline.importance_threshold", 2)
	v.SetDefault("pipeline.digest_period_days", 7)

	// Store defaults
	v.SetDefault("store.type", "sqlite")
	v.SetDefault("store.sqlite_path", "/var/lib/sunday-digest/digest.db")
	v.SetDefault("store.mysql_dsn", "")

	// Delivery defaults
	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from_name", "Sunday AI")
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.api_base_url", "https://api.telegram.org")
	v.SetDefault("telegram.teaser_max_chars", 500)

	// Scheduler defaults
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.max_concurrent_users", 4)

	// Ingest defaults
	v.SetDefault("ingest.enabled", true)
	v.SetDefault("ingest.mode", "webhook")
	v.SetDefault("ingest.listen_address", "0.0.0.0:8090")
	v.SetDefault("ingest.auth_token", "")
	v.SetDefault("ingest.imap.address", "imap.gmail.com:993")
	v.SetDefault("ingest.imap.username", "")
	v.SetDefault("ingest.imap.password", "")
	v.SetDefault("ingest.imap.mailbox", "INBOX")
	v.SetDefault("ingest.imap.poll_interval", "5m")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString returns a string configuration value
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt returns an integer configuration value
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetBool returns a boolean configuration value
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetFloat64 returns a float64 configuration value
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetStringSlice returns a string slice configuration value
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration returns a duration configuration value
func (c *Config) GetDuration(key string) (time.Duration, error) {
	raw := c.v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q for %s: %w", raw, key, err)
	}
	return d, nil
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
