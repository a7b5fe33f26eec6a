package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sundaylabs/sunday-digest/internal/adapters/store"
	"github.com/sundaylabs/sunday-digest/internal/core"
	"github.com/sundaylabs/sunday-digest/internal/whitelist"
	"go.uber.org/zap"
)

const rawMIMEEmail = "From: TLDR <news@tldr.tech>\r\n" +
	"To: inbox@sunday.dev\r\n" +
	"Subject: AI roundup\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=b1\r\n" +
	"\r\n" +
	"--b1\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Plain text insights here.\r\n" +
	"--b1\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<html><body><p>HTML insights here.</p></body></html>\r\n" +
	"--b1--\r\n"

const rawHTMLOnlyEmail = "From: news@tldr.tech\r\n" +
	"Subject: HTML only\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<html><head><style>p{color:red}</style></head><body><p>Only markup here.</p></body></html>\r\n"

func newTestServer(st *store.MemoryStore, authToken string) *WebhookServer {
	logger := zap.NewNop()
	return NewWebhookServer(st, whitelist.NewResolver(st, logger), logger, ":0", authToken)
}

func postInbound(t *testing.T, s *WebhookServer, token string, payload inboundPayload) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/inbound", bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handleInbound(rec, req)
	return rec
}

func TestInboundFansOutToActiveSubscribers(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	st.UpsertProfile(ctx, &core.UserProfile{ID: "user-1"})
	st.UpsertProfile(ctx, &core.UserProfile{ID: "user-2"})
	st.UpsertProfile(ctx, &core.UserProfile{ID: "user-3"})
	st.InsertSubscription(ctx, &core.SenderSubscription{ID: "sub1", UserID: "user-1", SenderEmail: "news@tldr.tech", IsActive: true})
	st.InsertSubscription(ctx, &core.SenderSubscription{ID: "sub2", UserID: "user-2", SenderEmail: "news@tldr.tech", IsActive: true})
	st.InsertSubscription(ctx, &core.SenderSubscription{ID: "sub3", UserID: "user-3", SenderEmail: "news@tldr.tech", IsActive: false})

	s := newTestServer(st, "")
	rec := postInbound(t, s, "", inboundPayload{
		Sender:   "TLDR <News@TLDR.tech>",
		RawEmail: rawMIMEEmail,
	})

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if body := rec.Body.String(); body != `{"stored":2}` {
		t.Errorf("body = %s, want stored 2", body)
	}

	for _, userID := range []string{"user-1", "user-2"} {
		pending, err := st.PendingRawEmails(context.Background(), userID)
		if err != nil {
			t.Fatalf("PendingRawEmails(%s): %v", userID, err)
		}
		if len(pending) != 1 {
			t.Fatalf("pending for %s = %d, want 1", userID, len(pending))
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
		if !strings.Contains(email.BodyHTML, "HTML insights") {
			t.Errorf("html body = %q", email.BodyHTML)
		}
	}

	// The inactive subscriber got nothing.
	pending, _ := st.PendingRawEmails(context.Background(), "user-3")
	if len(pending) != 0 {
		t.Errorf("pending for user-3 = %d, want 0", len(pending))
	}
}

func TestInboundUnsubscribedSenderIsDropped(t *testing.T) {
	st := store.NewMemoryStore()
	st.UpsertProfile(context.Background(), &core.UserProfile{ID: "user-1"})

	s := newTestServer(st, "")
	rec := postInbound(t, s, "", inboundPayload{
		Sender:   "spam@unknown.example",
		RawEmail: rawMIMEEmail,
	})

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if body := rec.Body.String(); body != `{"stored":0}` {
		t.Errorf("body = %s, want stored 0", body)
	}
}

func TestInboundHTMLOnlyEmailGetsExtractedText(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	st.UpsertProfile(ctx, &core.UserProfile{ID: "user-1"})
	st.InsertSubscription(ctx, &core.SenderSubscription{ID: "sub1", UserID: "user-1", SenderEmail: "news@tldr.tech", IsActive: true})

	s := newTestServer(st, "")
	postInbound(t, s, "", inboundPayload{
		Sender:   "news@tldr.tech",
		RawEmail: rawHTMLOnlyEmail,
	})

	pending, _ := st.PendingRawEmails(ctx, "user-1")
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	if got := pending[0].BodyPlain; got != "Only markup here." {
		t.Errorf("extracted plain body = %q", got)
	}
}

func TestInboundRejectsBadRequests(t *testing.T) {
	st := store.NewMemoryStore()
	s := newTestServer(st, "secret")

	// Wrong method.
	req := httptest.NewRequest(http.MethodGet, "/inbound", nil)
	rec := httptest.NewRecorder()
	s.handleInbound(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", rec.Code)
	}

	// Missing token.
	rec = postInbound(t, s, "", inboundPayload{Sender: "a@b.c", RawEmail: "x"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token status = %d, want 401", rec.Code)
	}

	// Wrong token.
	rec = postInbound(t, s, "wrong", inboundPayload{Sender: "a@b.c", RawEmail: "x"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", rec.Code)
	}

	// Missing required fields.
	rec = postInbound(t, s, "secret", inboundPayload{Sender: "a@b.c"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing raw_email status = %d, want 400", rec.Code)
	}
}

func TestParseRawEmailNonMIMEFallsBackToPlain(t *testing.T) {
	subject, plain, html := parseRawEmail("just a bare string, not a MIME message")
	if subject != "" {
		t.Errorf("subject = %q, want empty", subject)
	}
	if plain == "" {
		t.Error("non-MIME input should be kept as plain text")
	}
	if html != "" {
		t.Errorf("html = %q, want empty", html)
	}
}

func TestInboundTimestampIsUsedAsReceivedAt(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	st.UpsertProfile(ctx, &core.UserProfile{ID: "user-1"})
	st.InsertSubscription(ctx, &core.SenderSubscription{ID: "sub1", UserID: "user-1", SenderEmail: "news@tldr.tech", IsActive: true})

	s := newTestServer(st, "")
	sentAt := time.Date(2024, 11, 15, 9, 30, 0, 0, time.UTC)
	postInbound(t, s, "", inboundPayload{
		Sender:    "news@tldr.tech",
		RawEmail:  rawMIMEEmail,
		Timestamp: sentAt.Format(time.RFC3339),
	})

	pending, _ := st.PendingRawEmails(ctx, "user-1")
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	if got := pending[0].ReceivedAt; !got.Equal(sentAt) {
		t.Errorf("received_at = %v, want %v", got, sentAt)
	}
}

func TestInboundMalformedTimestampFallsBackToNow(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	st.UpsertProfile(ctx, &core.UserProfile{ID: "user-1"})
	st.InsertSubscription(ctx, &core.SenderSubscription{ID: "sub1", UserID: "user-1", SenderEmail: "news@tldr.tech", IsActive: true})

	s := newTestServer(st, "")
	before := time.Now().UTC()
	postInbound(t, s, "", inboundPayload{
		Sender:    "news@tldr.tech",
		RawEmail:  rawMIMEEmail,
		Timestamp: "yesterday-ish",
	})

	pending, _ := st.PendingRawEmails(ctx, "user-1")
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	got := pending[0].ReceivedAt
	if got.Before(before) || got.After(time.Now().UTC()) {
		t.Errorf("received_at = %v, want a current timestamp", got)
	}
}
