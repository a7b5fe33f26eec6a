package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sundaylabs/sunday-digest/internal/config"
	"github.com/sundaylabs/sunday-digest/internal/core"
	"go.uber.org/zap"
)

func sampleDigest() *core.Digest {
	return &core.Digest{
		ID:     "d1",
		UserID: "user-1",
		Content: core.DigestContent{
			BigPicture:  "AI infrastructure spend keeps climbing across the board.",
			Trends:      []core.Trend{{Title: "Agents everywhere", Insight: "Every vendor shipped an agent SDK."}},
			ActionItems: []string{"Evaluate the new SDKs"},
			NoiseFilter: "Processed 12 inputs, dropped 7 promos.",
		},
		PeriodEnd: time.Date(2024, 11, 17, 8, 0, 0, 0, time.UTC),
	}
}

func TestBuildHTMLBody(t *testing.T) {
	body := BuildHTMLBody(sampleDigest())

	for _, want := range []string{
		"The Big Picture",
		"AI infrastructure spend keeps climbing",
		"Agents everywhere",
		"Action Items",
		"Evaluate the new SDKs",
		"Processed 12 inputs",
		"by Sunday AI",
		"November 17, 2024",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("HTML body missing %q", want)
		}
	}
}

func TestBuildHTMLBodyWithoutTrends(t *testing.T) {
	digest := sampleDigest()
	digest.Content.Trends = nil
	digest.Content.ActionItems = nil

	body := BuildHTMLBody(digest)
	if !strings.Contains(body, "No major trends detected this week") {
		t.Error("Empty trends should render the placeholder line")
	}
	if strings.Contains(body, "Action Items") {
		t.Error("Action items block should be omitted when empty")
	}
}

func TestBuildTeaserCapsLength(t *testing.T) {
	digest := sampleDigest()
	digest.Content.BigPicture = strings.Repeat("insight ", 200)

	teaser := BuildTeaser(digest, 500)
	if got := len([]rune(teaser)); got > 500 {
		t.Errorf("teaser length = %d runes, want at most 500", got)
	}
	if !strings.HasSuffix(teaser, "…") {
		t.Error("capped teaser should end with an ellipsis")
	}
	if !strings.HasPrefix(teaser, "☕ *Sunday Brief*") {
		t.Error("teaser should open with the brief marker")
	}
}

func TestBuildTeaserShortDigestIsUntouched(t *testing.T) {
	teaser := BuildTeaser(sampleDigest(), 500)
	if strings.HasSuffix(teaser, "…") {
		t.Error("short teaser should not be truncated")
	}
	if !strings.Contains(teaser, "• Agents everywhere") {
		t.Error("teaser should list trend titles")
	}
}

func TestTelegramSend(t *testing.T) {
	var got telegramMessage
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ch := NewTelegramChannel(config.TelegramConfig{
		Enabled:        true,
		BotToken:       "test-token",
		APIBaseURL:     server.URL,
		TeaserMaxChars: 500,
	}, zap.NewNop())

	profile := &core.UserProfile{ID: "user-1", TelegramChatID: "12345"}
	if err := ch.Send(context.Background(), sampleDigest(), profile); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if path != "/bottest-token/sendMessage" {
		t.Errorf("request path = %s", path)
	}
	if got.ChatID != "12345" {
		t.Errorf("chat_id = %s, want 12345", got.ChatID)
	}
	if got.ParseMode != "Markdown" {
		t.Errorf("parse_mode = %s, want Markdown", got.ParseMode)
	}
	if !strings.Contains(got.Text, "Sunday Brief") {
		t.Error("message text should contain the teaser header")
	}
}

func TestTelegramSendAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false,"description":"chat not found"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	ch := NewTelegramChannel(config.TelegramConfig{
		BotToken:   "test-token",
		APIBaseURL: server.URL,
	}, zap.NewNop())

	err := ch.Send(context.Background(), sampleDigest(), &core.UserProfile{TelegramChatID: "12345"})
	if err == nil {
		t.Fatal("Expected error for non-200 response")
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("error should include the API response, got %v", err)
	}
}

func TestTelegramSendWithoutChatIDIsSkipped(t *testing.T) {
	ch := NewTelegramChannel(config.TelegramConfig{BotToken: "t"}, zap.NewNop())

	err := ch.Send(context.Background(), sampleDigest(), &core.UserProfile{ID: "user-1"})
	if !errors.Is(err, core.ErrChannelNotConfigured) {
		t.Errorf("error = %v, want ErrChannelNotConfigured", err)
	}
}

func TestEmailSendWithoutAddressIsSkipped(t *testing.T) {
	ch := NewEmailChannel(config.SMTPConfig{Host: "localhost", Port: 587}, zap.NewNop())

	err := ch.Send(context.Background(), sampleDigest(), &core.UserProfile{ID: "user-1"})
	if !errors.Is(err, core.ErrChannelNotConfigured) {
		t.Errorf("error = %v, want ErrChannelNotConfigured", err)
	}
}
