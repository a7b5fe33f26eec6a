package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sundaylabs/sunday-digest/internal/core"
	"github.com/sundaylabs/sunday-digest/internal/ports"
	"github.com/sundaylabs/sunday-digest/internal/whitelist"
	"go.uber.org/zap"
)

// inboundPayload is what the mail edge (e.g. a Cloudflare email worker)
// forwards for each received message
type inboundPayload struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	RawEmail  string `json:"raw_email"`
	Timestamp string `json:"timestamp"`
}

// WebhookServer is an HTTP implementation of the IngestServer interface. It
// parses forwarded MIME messages and fans one pending RawEmail out per
// actively subscribed user.
type WebhookServer struct {
	intake    intake
	logger    *zap.Logger
	authToken string
	server    *http.Server
}

var _ ports.IngestServer = (*WebhookServer)(nil)

// NewWebhookServer creates a new inbound webhook server
func NewWebhookServer(
	store core.Store,
	resolver *whitelist.Resolver,
	logger *zap.Logger,
	listenAddress string,
	authToken string,
) *WebhookServer {
	s := &WebhookServer{
		intake:    intake{store: store, resolver: resolver, logger: logger},
		logger:    logger,
		authToken: authToken,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/inbound", s.handleInbound)
	s.server = &http.Server{
		Addr:         listenAddress,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start starts accepting inbound messages
func (s *WebhookServer) Start() error {
	s.logger.Info("Starting ingest webhook server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Ingest server failed", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the server down gracefully
func (s *WebhookServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *WebhookServer) handleInbound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.authToken != "" && r.Header.Get("Authorization") != "Bearer "+s.authToken {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var payload inboundPayload
	if err := json.NewDecoder(io.LimitReader(r.Body, 10<<20)).Decode(&payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if payload.Sender == "" || payload.RawEmail == "" {
		http.Error(w, "sender and raw_email are required", http.StatusBadRequest)
		return
	}

	subject, bodyPlain, bodyHTML := parseRawEmail(payload.RawEmail)
	if payload.Subject != "" {
		subject = payload.Subject
	}

	stored, err := s.intake.accept(r.Context(), payload.Sender, subject, bodyPlain, bodyHTML, payloadTime(payload.Timestamp))
	if err != nil {
		s.logger.Error("Failed to resolve subscribers", zap.String("sender", payload.Sender), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	fmt.Fprintf(w, `{"stored":%d}`, stored)
}

// payloadTime prefers the edge-reported receive time, so a delayed forward
// does not shift an email into the wrong digest period.
func payloadTime(timestamp string) time.Time {
	if timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, timestamp); err == nil {
			return ts
		}
	}
	return time.Now().UTC()
}
