package factory

import (
	"github.com/sundaylabs/sunday-digest/internal/adapters/delivery"
	"github.com/sundaylabs/sunday-digest/internal/config"
	"github.com/sundaylabs/sunday-digest/internal/core"
	"go.uber.org/zap"
)

// ChannelFactory creates delivery channels based on configuration
type ChannelFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewChannelFactory creates a new channel factory
func NewChannelFactory(cfg *config.Config, logger *zap.Logger) *ChannelFactory {
	return &ChannelFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateChannels creates the configured delivery channels. Email is always
// on; Telegram joins when enabled.
func (f *ChannelFactory) CreateChannels() []core.Channel {
	channels := []core.Channel{
		delivery.NewEmailChannel(f.cfg.GetSMTP(), f.logger),
	}

	telegramCfg := f.cfg.GetTelegram()
	if telegramCfg.Enabled {
		channels = append(channels, delivery.NewTelegramChannel(telegramCfg, f.logger))
	}

	return channels
}
