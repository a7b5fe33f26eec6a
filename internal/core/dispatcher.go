package core

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrChannelNotConfigured marks a channel the profile has no address for,
// e.g. Telegram without a chat id. It is a skip, not a failure.
var ErrChannelNotConfigured = errors.New("channel not configured for user")

// ChannelOutcome is one channel's delivery result
type ChannelOutcome struct {
	Channel string
	Skipped bool
	Err     error
}

// Dispatcher fans a finished digest out to every configured channel. Channels
// are independent: one failing never blocks another, and nothing here touches
// summarization state.
type Dispatcher struct {
	channels []Channel
	logger   *zap.Logger
}

// NewDispatcher creates a new dispatcher over the given channels
func NewDispatcher(channels []Channel, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		channels: channels,
		logger:   logger,
	}
}

// Dispatch sends the digest on each channel and collects per-channel outcomes
func (d *Dispatcher) Dispatch(ctx context.Context, digest *Digest, profile *UserProfile) []ChannelOutcome {
	outcomes := make([]ChannelOutcome, 0, len(d.channels))

	for _, ch := range d.channels {
		err := ch.Send(ctx, digest, profile)
		switch {
		case errors.Is(err, ErrChannelNotConfigured):
			d.logger.Debug("Channel not configured for user, skipping",
				zap.String("channel", ch.Name()),
				zap.String("user_id", profile.ID))
			outcomes = append(outcomes, ChannelOutcome{Channel: ch.Name(), Skipped: true, Err: err})
		case err != nil:
			d.logger.Warn("Channel delivery failed",
				zap.String("channel", ch.Name()),
				zap.String("user_id", profile.ID),
				zap.String("digest_id", digest.ID),
				zap.Error(err))
			outcomes = append(outcomes, ChannelOutcome{Channel: ch.Name(), Err: err})
		default:
			d.logger.Info("Digest delivered",
				zap.String("channel", ch.Name()),
				zap.String("user_id", profile.ID),
				zap.String("digest_id", digest.ID))
			outcomes = append(outcomes, ChannelOutcome{Channel: ch.Name()})
		}
	}

	return outcomes
}

// Delivered reports whether at least one channel succeeded
func Delivered(outcomes []ChannelOutcome) bool {
	for _, o := range outcomes {
		if o.Err == nil && !o.Skipped {
			return true
		}
	}
	return false
}
