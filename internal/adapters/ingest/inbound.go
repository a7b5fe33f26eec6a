// Package ingest receives raw emails from the mail edge, either pushed over
// an HTTP webhook or pulled from an IMAP mailbox, and stores one pending copy
// per actively subscribed user.
package ingest

import (
	"context"
	"io"
	"strings"
	"time"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"
	"github.com/sundaylabs/sunday-digest/internal/core"
	"github.com/sundaylabs/sunday-digest/internal/utils"
	"github.com/sundaylabs/sunday-digest/internal/whitelist"
	"go.uber.org/zap"
)

// intake fans one inbound message out to every active subscriber of its
// sender. Shared by the webhook and IMAP paths so both store identical rows.
type intake struct {
	store    core.Store
	resolver *whitelist.Resolver
	logger   *zap.Logger
}

// accept stores one pending RawEmail per active subscriber of sender. A
// sender nobody subscribes to is dropped and reported as zero stored.
func (in *intake) accept(ctx context.Context, sender, subject, bodyPlain, bodyHTML string, receivedAt time.Time) (int, error) {
	subscribers, err := in.resolver.Subscribers(ctx, sender)
	if err != nil {
		return 0, err
	}
	if len(subscribers) == 0 {
		return 0, nil
	}

	if strings.TrimSpace(bodyPlain) == "" && bodyHTML != "" {
		bodyPlain = utils.StripHTML(bodyHTML)
	}

	stored := 0
	for _, profile := range subscribers {
		email := &core.RawEmail{
			ID:               uuid.NewString(),
			UserID:           profile.ID,
			Sender:           whitelist.NormalizeSender(sender),
			Subject:          subject,
			BodyPlain:        bodyPlain,
			BodyHTML:         bodyHTML,
			ReceivedAt:       receivedAt.UTC(),
			ProcessingStatus: core.StatusPending,
		}
		if err := in.store.InsertRawEmail(ctx, email); err != nil {
			in.logger.Error("Failed to store raw email",
				zap.String("user_id", profile.ID),
				zap.String("sender", email.Sender),
				zap.Error(err))
			continue
		}
		stored++
	}

	in.logger.Info("Inbound email stored",
		zap.String("sender", sender),
		zap.Int("subscribers", len(subscribers)),
		zap.Int("stored", stored))
	return stored, nil
}

// parseRawEmail splits a raw MIME message into subject, plain text and HTML
// bodies. A message that does not parse as MIME is kept verbatim as plain
// text rather than dropped.
func parseRawEmail(raw string) (subject, bodyPlain, bodyHTML string) {
	mr, err := mail.CreateReader(strings.NewReader(raw))
	if err != nil {
		return "", raw, ""
	}

	if s, err := mr.Header.Subject(); err == nil {
		subject = s
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, err := header.ContentType()
		if err != nil {
			continue
		}

		body, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}

		switch contentType {
		case "text/plain":
			bodyPlain += string(body)
		case "text/html":
			bodyHTML += string(body)
		}
	}

	return subject, bodyPlain, bodyHTML
}
