package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sundaylabs/sunday-digest/internal/config"
	"github.com/sundaylabs/sunday-digest/internal/core"
	"go.uber.org/zap"
)

// TelegramChannel delivers a short digest teaser to a Telegram chat via the
// Bot API
type TelegramChannel struct {
	cfg    config.TelegramConfig
	client *http.Client
	logger *zap.Logger
}

var _ core.Channel = (*TelegramChannel)(nil)

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// NewTelegramChannel creates a new Telegram channel
func NewTelegramChannel(cfg config.TelegramConfig, logger *zap.Logger) *TelegramChannel {
	return &TelegramChannel{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// Name identifies the channel in outcomes and logs
func (c *TelegramChannel) Name() string {
	return "telegram"
}

// Send posts a capped teaser to the profile's chat
func (c *TelegramChannel) Send(ctx context.Context, digest *core.Digest, profile *core.UserProfile) error {
	if profile.TelegramChatID == "" {
		return core.ErrChannelNotConfigured
	}

	payload, err := json.Marshal(telegramMessage{
		ChatID:    profile.TelegramChatID,
		Text:      BuildTeaser(digest, c.cfg.TeaserMaxChars),
		ParseMode: "Markdown",
	})
	if err != nil {
		return fmt.Errorf("telegram: failed to marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.cfg.APIBaseURL, c.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("telegram: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: failed to send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram: unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// BuildTeaser condenses a digest into a short chat message. It opens with the
// brief marker and is hard-capped at maxChars runes.
func BuildTeaser(digest *core.Digest, maxChars int) string {
	if maxChars <= 0 {
		maxChars = 500
	}

	var sb strings.Builder
	sb.WriteString("☕ *Sunday Brief*\n\n")
	sb.WriteString(digest.Content.BigPicture)

	if len(digest.Content.Trends) > 0 {
		sb.WriteString("\n")
		for _, t := range digest.Content.Trends {
			sb.WriteString(fmt.Sprintf("\n• %s", t.Title))
		}
	}

	teaser := sb.String()
	runes := []rune(teaser)
	if len(runes) > maxChars {
		teaser = string(runes[:maxChars-1]) + "…"
	}
	return teaser
}
