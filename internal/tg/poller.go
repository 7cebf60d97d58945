package tg

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UpdateSource yields updates by long polling.
type UpdateSource interface {
	Updates(timeoutSeconds int) tgbotapi.UpdatesChannel
	StopUpdates()
}

// Poller feeds long-polled updates to a processor one at a time.
type Poller struct {
	source    UpdateSource
	processor UpdateProcessor
	timeout   int
	logger    *slog.Logger
}

// NewPoller creates a poller.
func NewPoller(source UpdateSource, processor UpdateProcessor, timeoutSeconds int, logger *slog.Logger) *Poller {
	return &Poller{
		source:    source,
		processor: processor,
		timeout:   timeoutSeconds,
		logger:    logger.With("component", "telegram_poller"),
	}
}

// Run polls until ctx is cancelled or the update channel closes.
func (p *Poller) Run(ctx context.Context) error {
	updates := p.source.Updates(p.timeout)
	p.logger.Info("long polling started", "timeout_seconds", p.timeout)
	defer p.source.StopUpdates()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("long polling stopped")
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			p.processor.Process(ctx, u)
		}
	}
}
