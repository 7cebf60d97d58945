package tg

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"coupon-bot/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// SecretHeader carries the secret registered with setWebhook.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

const maxUpdateBytes = 1 << 20

// WebhookHandler receives updates pushed by Telegram. It answers 200 to
// every call so Telegram never retries a delivery the bot already saw.
type WebhookHandler struct {
	secret    string
	processor UpdateProcessor
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewWebhookHandler creates a webhook handler. An empty secret disables the
// header check.
func NewWebhookHandler(secret string, processor UpdateProcessor, metricRegistry *metrics.Metrics, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		secret:    secret,
		processor: processor,
		metrics:   metricRegistry,
		logger:    logger.With("component", "telegram_webhook"),
	}
}

// ServeHTTP satisfies http.Handler.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer writeOK(w)

	if !h.authorised(r) {
		h.countError("telegram_webhook_auth")
		h.logger.Warn("webhook call with bad secret", "remote_addr", r.RemoteAddr)
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBytes)).Decode(&update); err != nil {
		h.countError("telegram_webhook")
		h.logger.Warn("undecodable webhook body", "error", err)
		return
	}

	h.processor.Process(context.WithoutCancel(r.Context()), update)
}

func (h *WebhookHandler) authorised(r *http.Request) bool {
	if h.secret == "" {
		return true
	}
	got := r.Header.Get(SecretHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) == 1
}

func (h *WebhookHandler) countError(component string) {
	if h.metrics != nil {
		h.metrics.Errors.WithLabelValues(component).Inc()
	}
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
