package ingest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sundaylabs/sunday-digest/internal/adapters/store"
	"github.com/sundaylabs/sunday-digest/internal/config"
	"github.com/sundaylabs/sunday-digest/internal/core"
	"github.com/sundaylabs/sunday-digest/internal/whitelist"
	"go.uber.org/zap"
)

func newTestPoller(st *store.MemoryStore, cfg config.IMAPConfig) *IMAPPoller {
	logger := zap.NewNop()
	return NewIMAPPoller(st, whitelist.NewResolver(st, logger), logger, cfg)
}

func TestIngestRawFansOutToActiveSubscribers(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	st.UpsertProfile(ctx, &core.UserProfile{ID: "user-1"})
	st.UpsertProfile(ctx, &core.UserProfile{ID: "user-2"})
	st.InsertSubscription(ctx, &core.SenderSubscription{ID: "sub1", UserID: "user-1", SenderEmail: "news@tldr.tech", IsActive: true})
	st.InsertSubscription(ctx, &core.SenderSubscription{ID: "sub2", UserID: "user-2", SenderEmail: "news@tldr.tech", IsActive: false})

	p := newTestPoller(st, config.IMAPConfig{})
	receivedAt := time.Date(2024, 11, 16, 7, 45, 0, 0, time.UTC)
	stored, err := p.ingestRaw(ctx, "News@TLDR.tech", rawMIMEEmail, receivedAt)
	if err != nil {
		t.Fatalf("ingestRaw: %v", err)
	}
	if stored != 1 {
		t.Fatalf("stored = %d, want 1", stored)
	}

	pending, err := st.PendingRawEmails(ctx, "user-1")
	if err != nil {
		t.Fatalf("PendingRawEmails: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	email := pending[0]
	if email.Sender != "news@tldr.tech" {
		t.Errorf("sender = %s, want normalized news@tldr.tech", email.Sender)
	}
	if email.Subject != "AI roundup" {
		t.Errorf("subject = %s", email.Subject)
	}
	if !strings.Contains(email.BodyPlain, "Plain text insights") {
		t.Errorf("plain body = %q", email.BodyPlain)
	}
	if !email.ReceivedAt.Equal(receivedAt) {
		t.Errorf("received_at = %v, want %v", email.ReceivedAt, receivedAt)
	}

	// The inactive subscriber got nothing.
	pending, _ = st.PendingRawEmails(ctx, "user-2")
	if len(pending) != 0 {
		t.Errorf("pending for user-2 = %d, want 0", len(pending))
	}
}

func TestIngestRawUnsubscribedSenderIsDropped(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	st.UpsertProfile(ctx, &core.UserProfile{ID: "user-1"})

	p := newTestPoller(st, config.IMAPConfig{})
	stored, err := p.ingestRaw(ctx, "stranger@unknown.example", rawMIMEEmail, time.Now())
	if err != nil {
		t.Fatalf("ingestRaw: %v", err)
	}
	if stored != 0 {
		t.Errorf("stored = %d, want 0", stored)
	}
}

func TestNewIMAPPollerAppliesDefaults(t *testing.T) {
	p := newTestPoller(store.NewMemoryStore(), config.IMAPConfig{
		Address:  "imap.example.com:993",
		Username: "inbox@sunday.dev",
	})
	if p.cfg.Mailbox != "INBOX" {
		t.Errorf("mailbox = %q, want INBOX", p.cfg.Mailbox)
	}
	if p.cfg.PollInterval != 5*time.Minute {
		t.Errorf("poll interval = %v, want 5m", p.cfg.PollInterval)
	}
}

func TestIMAPPollerStartRequiresCredentials(t *testing.T) {
	p := newTestPoller(store.NewMemoryStore(), config.IMAPConfig{})
	if err := p.Start(); err == nil {
		t.Error("Start() with no address or username should fail")
	}
}
