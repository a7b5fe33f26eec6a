package whitelist

import (
	"context"
	"net/mail"
	"strings"

	"github.com/sundaylabs/sunday-digest/internal/core"
	"go.uber.org/zap"
)

// Resolver matches inbound senders against stored sender subscriptions.
// Whitelisting happens at the ingest boundary; the pipeline itself trusts
// that every stored raw email was legitimately subscribed to.
type Resolver struct {
	store  core.Store
	logger *zap.Logger
}

// NewResolver creates a new whitelist resolver
func NewResolver(store core.Store, logger *zap.Logger) *Resolver {
	return &Resolver{
		store:  store,
		logger: logger,
	}
}

// NormalizeSender reduces a raw From value like "Ivan <ivan@sunday.dev>" to
// a lowercase bare address
func NormalizeSender(raw string) string {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	return strings.ToLower(addr.Address)
}

// Subscribers returns the profiles actively subscribed to the given sender
func (r *Resolver) Subscribers(ctx context.Context, rawSender string) ([]*core.UserProfile, error) {
	sender := NormalizeSender(rawSender)

	profiles, err := r.store.ActiveSubscribers(ctx, sender)
	if err != nil {
		return nil, err
	}

	if len(profiles) == 0 {
		r.logger.Debug("Sender not in any whitelist", zap.String("sender", sender))
	}
	return profiles, nil
}
