package delivery

import (
	"context"
	"fmt"
	"strings"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/sundaylabs/sunday-digest/internal/config"
	"github.com/sundaylabs/sunday-digest/internal/core"
	"go.uber.org/zap"
)

// EmailChannel delivers a digest as an HTML email over SMTP
type EmailChannel struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
}

var _ core.Channel = (*EmailChannel)(nil)

// NewEmailChannel creates a new SMTP email channel
func NewEmailChannel(cfg config.SMTPConfig, logger *zap.Logger) *EmailChannel {
	return &EmailChannel{cfg: cfg, logger: logger}
}

// Name identifies the channel in outcomes and logs
func (c *EmailChannel) Name() string {
	return "email"
}

// Send renders the digest to HTML and mails it to the profile's address
func (c *EmailChannel) Send(_ context.Context, digest *core.Digest, profile *core.UserProfile) error {
	to := profile.PersonalEmail
	if to == "" {
		to = digest.UserEmail
	}
	if to == "" {
		return core.ErrChannelNotConfigured
	}

	subject := fmt.Sprintf("☕ Your Sunday Brief: %s - %s", "Strategic Digest", digest.PeriodEnd.Format("2006-01-02"))
	body := BuildHTMLBody(digest)

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s <%s>\r\n", c.cfg.FromName, c.cfg.Username))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
	auth := sasl.NewPlainClient("", c.cfg.Username, c.cfg.Password)

	if err := smtp.SendMail(addr, auth, c.cfg.Username, []string{to}, strings.NewReader(msg.String())); err != nil {
		return fmt.Errorf("email: failed to send: %w", err)
	}
	return nil
}

// BuildHTMLBody renders a digest into the delivery HTML document
func BuildHTMLBody(digest *core.Digest) string {
	var sb strings.Builder

	sb.WriteString(`<html><body style="font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">`)
	sb.WriteString(`<div style="text-align: center; margin-bottom: 30px;">`)
	sb.WriteString(`<h1 style="color: #111; margin: 0;">Sunday Brief ☕</h1>`)
	sb.WriteString(fmt.Sprintf(`<p style="color: #666; font-size: 14px;">%s</p>`, digest.PeriodEnd.Format("January 2, 2006")))
	sb.WriteString(`</div>`)

	sb.WriteString(`<div style="background: #eff6ff; padding: 25px; border-radius: 12px; margin-bottom: 30px; border-left: 6px solid #3b82f6;">`)
	sb.WriteString(`<h2 style="color: #1e3a8a; margin-top: 0; font-size: 18px;">🌍 The Big Picture</h2>`)
	sb.WriteString(fmt.Sprintf(`<p style="line-height: 1.6; font-size: 16px; color: #1e40af; margin-bottom: 0;">%s</p>`, digest.Content.BigPicture))
	sb.WriteString(`</div>`)

	sb.WriteString(`<h3 style="border-bottom: 2px solid #eee; padding-bottom: 10px; margin-top: 30px;">📊 Key Strategic Insights</h3>`)
	if len(digest.Content.Trends) == 0 {
		sb.WriteString(`<p style='color: #777; font-style: italic;'>No major trends detected this week.</p>`)
	}
	for _, t := range digest.Content.Trends {
		sb.WriteString(`<div style="margin-bottom: 25px;">`)
		sb.WriteString(fmt.Sprintf(`<h4 style="margin: 0 0 8px 0; color: #111827; font-size: 16px; font-weight: 700;">%s</h4>`, t.Title))
		sb.WriteString(fmt.Sprintf(`<p style="margin: 0; color: #4b5563; font-size: 15px; line-height: 1.5;">%s</p>`, t.Insight))
		sb.WriteString(`</div>`)
	}

	if len(digest.Content.ActionItems) > 0 {
		sb.WriteString(`<div style="background: #fff1f2; padding: 20px; border-radius: 12px; margin-top: 30px; border: 1px solid #fecdd3;">`)
		sb.WriteString(`<h3 style="color: #9f1239; margin-top: 0; font-size: 16px;">🚀 Action Items</h3>`)
		sb.WriteString(`<ul style="margin-bottom: 0; padding-left: 20px;">`)
		for _, item := range digest.Content.ActionItems {
			sb.WriteString(fmt.Sprintf(`<li style='color: #881337; margin-bottom: 8px; font-size: 15px;'>%s</li>`, item))
		}
		sb.WriteString(`</ul></div>`)
	}

	if digest.Content.NoiseFilter != "" {
		sb.WriteString(fmt.Sprintf(`<p style="color: #9ca3af; font-size: 13px; margin-top: 25px;">%s</p>`, digest.Content.NoiseFilter))
	}

	sb.WriteString(`<div style="margin-top: 40px; padding-top: 20px; border-top: 1px solid #eee; text-align: center;">`)
	sb.WriteString(`<p style="color: #9ca3af; font-size: 12px;">by Sunday AI</p>`)
	sb.WriteString(`</div></body></html>`)
	return sb.String()
}
