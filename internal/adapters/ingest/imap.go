package ingest

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/sundaylabs/sunday-digest/internal/config"
	"github.com/sundaylabs/sunday-digest/internal/core"
	"github.com/sundaylabs/sunday-digest/internal/ports"
	"github.com/sundaylabs/sunday-digest/internal/whitelist"
	"go.uber.org/zap"
)

// IMAPPoller is an IMAP implementation of the IngestServer interface for
// deployments without a forwarding mail edge. It sweeps a mailbox for unseen
// messages on an interval and stores them through the same per-subscriber
// fan-out as the webhook. Fetching the body sets \Seen, so a message is
// swept at most once.
type IMAPPoller struct {
	cfg    config.IMAPConfig
	intake intake
	logger *zap.Logger

	quit chan struct{}
	wg   sync.WaitGroup
}

var _ ports.IngestServer = (*IMAPPoller)(nil)

// NewIMAPPoller creates a new IMAP mailbox poller
func NewIMAPPoller(
	store core.Store,
	resolver *whitelist.Resolver,
	logger *zap.Logger,
	cfg config.IMAPConfig,
) *IMAPPoller {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Minute
	}
	return &IMAPPoller{
		cfg:    cfg,
		intake: intake{store: store, resolver: resolver, logger: logger},
		logger: logger,
		quit:   make(chan struct{}),
	}
}

// Start begins the polling loop
func (p *IMAPPoller) Start() error {
	if p.cfg.Address == "" || p.cfg.Username == "" {
		return fmt.Errorf("imap ingest requires an address and username")
	}

	p.logger.Info("Starting IMAP ingest poller",
		zap.String("address", p.cfg.Address),
		zap.String("mailbox", p.cfg.Mailbox),
		zap.Duration("interval", p.cfg.PollInterval))

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.cfg.PollInterval)
		defer ticker.Stop()

		p.sweep(context.Background())
		for {
			select {
			case <-p.quit:
				return
			case <-ticker.C:
				p.sweep(context.Background())
			}
		}
	}()
	return nil
}

// Stop ends the polling loop and waits for an in-flight sweep to finish
func (p *IMAPPoller) Stop() error {
	close(p.quit)
	p.wg.Wait()
	return nil
}

// sweep fetches every unseen message in the mailbox and stores the ones whose
// sender has active subscribers. One bad message must not abort the sweep.
func (p *IMAPPoller) sweep(ctx context.Context) {
	c, err := client.DialTLS(p.cfg.Address, nil)
	if err != nil {
		p.logger.Error("Failed to connect to IMAP server", zap.String("address", p.cfg.Address), zap.Error(err))
		return
	}
	defer c.Logout()

	if err := c.Login(p.cfg.Username, p.cfg.Password); err != nil {
		p.logger.Error("Failed to login to IMAP server", zap.String("username", p.cfg.Username), zap.Error(err))
		return
	}

	if _, err := c.Select(p.cfg.Mailbox, false); err != nil {
		p.logger.Error("Failed to select mailbox", zap.String("mailbox", p.cfg.Mailbox), zap.Error(err))
		return
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := c.Search(criteria)
	if err != nil {
		p.logger.Error("Failed to search for unseen messages", zap.Error(err))
		return
	}
	if len(ids) == 0 {
		return
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchEnvelope, imap.FetchInternalDate}

	messages := make(chan *imap.Message, 16)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	stored := 0
	for msg := range messages {
		n, err := p.storeMessage(ctx, msg, section)
		if err != nil {
			p.logger.Warn("Skipping unreadable message", zap.Uint32("seq", msg.SeqNum), zap.Error(err))
			continue
		}
		stored += n
	}

	if err := <-done; err != nil {
		p.logger.Error("Failed to fetch messages", zap.Error(err))
		return
	}

	p.logger.Info("IMAP sweep finished",
		zap.Int("unseen", len(ids)),
		zap.Int("stored", stored))
}

func (p *IMAPPoller) storeMessage(ctx context.Context, msg *imap.Message, section *imap.BodySectionName) (int, error) {
	if msg.Envelope == nil || len(msg.Envelope.From) == 0 {
		return 0, fmt.Errorf("message has no envelope sender")
	}
	sender := msg.Envelope.From[0].Address()

	body := msg.GetBody(section)
	if body == nil {
		return 0, fmt.Errorf("message has no body section")
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return 0, fmt.Errorf("read message body: %w", err)
	}

	receivedAt := msg.InternalDate
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	return p.ingestRaw(ctx, sender, string(raw), receivedAt)
}

// ingestRaw parses one raw message and fans it out to the sender's active
// subscribers
func (p *IMAPPoller) ingestRaw(ctx context.Context, sender, raw string, receivedAt time.Time) (int, error) {
	subject, bodyPlain, bodyHTML := parseRawEmail(raw)
	return p.intake.accept(ctx, sender, subject, bodyPlain, bodyHTML, receivedAt)
}
