package tg

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"coupon-bot/internal/chat"
	"coupon-bot/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

// Handler consumes normalised intents.
type Handler interface {
	Dispatch(ctx context.Context, in chat.Intent) error
}

// Deduper reports whether an update id is seen for the first time.
type Deduper interface {
	FirstDelivery(ctx context.Context, updateID int) (bool, error)
}

// UpdateProcessor handles one raw update.
type UpdateProcessor interface {
	Process(ctx context.Context, u tgbotapi.Update)
}

// Processor turns raw updates into dispatched intents. It never returns
// errors; every failure is logged and counted.
type Processor struct {
	handler Handler
	dedupe  Deduper
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewProcessor builds a processor. dedupe may be nil.
func NewProcessor(handler Handler, dedupe Deduper, timeout time.Duration, metricRegistry *metrics.Metrics, logger *slog.Logger) *Processor {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Processor{
		handler: handler,
		dedupe:  dedupe,
		timeout: timeout,
		metrics: metricRegistry,
		logger:  logger.With("component", "updates"),
	}
}

// Process handles one update to completion.
func (p *Processor) Process(ctx context.Context, u tgbotapi.Update) {
	start := time.Now()
	logger := p.logger.With("update_id", u.UpdateID, "trace_id", uuid.NewString())

	defer func() {
		if r := recover(); r != nil {
			p.countError("panic")
			logger.Error("panic while handling update", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	in, ok := IntentFromUpdate(u)
	if !ok {
		p.countIncoming("ignored")
		return
	}

	if p.dedupe != nil {
		first, err := p.dedupe.FirstDelivery(ctx, u.UpdateID)
		if err != nil {
			p.countError("dedupe")
			logger.Warn("update dedupe unavailable, processing anyway", "error", err)
		} else if !first {
			p.countIncoming("duplicate")
			logger.Debug("duplicate update skipped")
			return
		}
	}

	kind := in.Kind.String()
	p.countIncoming(kind)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.handler.Dispatch(ctx, in); err != nil {
		logger.Error("update handling failed", "user_id", in.UserID, "kind", kind, "error", err)
	}
	if p.metrics != nil {
		p.metrics.UpdateLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
}

func (p *Processor) countIncoming(kind string) {
	if p.metrics != nil {
		p.metrics.IncomingUpdates.WithLabelValues(kind).Inc()
	}
}

func (p *Processor) countError(component string) {
	if p.metrics != nil {
		p.metrics.Errors.WithLabelValues(component).Inc()
	}
}
