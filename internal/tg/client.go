// Package tg adapts the Telegram Bot API to the chat vocabulary used by the
// dispatcher.
package tg

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"coupon-bot/internal/chat"
	"coupon-bot/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Config describes how to reach the Bot API.
type Config struct {
	Token string
	// APIEndpoint is a format string taking the token and the method name.
	APIEndpoint string
	HTTPClient  *http.Client
}

// Client sends messages through the Bot API and implements chat.Notifier.
type Client struct {
	api     *tgbotapi.BotAPI
	metrics *metrics.Metrics
	logger  *slog.Logger
}

var _ chat.Notifier = (*Client)(nil)

// New authenticates against the Bot API and returns a ready client.
func New(cfg Config, metricRegistry *metrics.Metrics, logger *slog.Logger) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 70 * time.Second}
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("telegram getMe: %w", err)
	}

	logger = logger.With("component", "telegram")
	logger.Info("telegram bot authorised", "username", api.Self.UserName)
	return &Client{api: api, metrics: metricRegistry, logger: logger}, nil
}

// Username returns the bot's handle.
func (c *Client) Username() string {
	return c.api.Self.UserName
}

// SendText sends a text message with optional keyboard.
func (c *Client) SendText(_ context.Context, chatID int64, text string, kb *chat.Keyboard) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup := replyMarkup(kb); markup != nil {
		msg.ReplyMarkup = markup
	}
	_, err := c.api.Send(msg)
	return c.observe("text", chatID, err)
}

// SendPhoto re-sends an already uploaded photo by its file id.
func (c *Client) SendPhoto(_ context.Context, chatID int64, photoRef, caption string, kb *chat.Keyboard) error {
	msg := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(photoRef))
	msg.Caption = caption
	if markup := replyMarkup(kb); markup != nil {
		msg.ReplyMarkup = markup
	}
	_, err := c.api.Send(msg)
	return c.observe("photo", chatID, err)
}

// AckButton answers a callback query so the client stops its spinner.
func (c *Client) AckButton(_ context.Context, pressID, text string) error {
	_, err := c.api.Request(tgbotapi.NewCallback(pressID, text))
	return c.observe("callback", 0, err)
}

// SetWebhook registers the public webhook URL. A non-empty secret is echoed
// back by Telegram in every webhook call.
func (c *Client) SetWebhook(_ context.Context, url, secret string) error {
	params := tgbotapi.Params{}
	params.AddNonEmpty("url", url)
	params.AddNonEmpty("secret_token", secret)
	if _, err := c.api.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	c.logger.Info("webhook registered", "url", url)
	return nil
}

// DeleteWebhook removes any registered webhook so long polling can start.
func (c *Client) DeleteWebhook(_ context.Context) error {
	if _, err := c.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	return nil
}

// Updates starts long polling.
func (c *Client) Updates(timeoutSeconds int) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSeconds
	return c.api.GetUpdatesChan(u)
}

// StopUpdates ends long polling.
func (c *Client) StopUpdates() {
	c.api.StopReceivingUpdates()
}

func (c *Client) observe(kind string, chatID int64, err error) error {
	status := "ok"
	if err != nil {
		status = "error"
	}
	if c.metrics != nil {
		c.metrics.OutgoingMessages.WithLabelValues(kind, status).Inc()
	}
	if err != nil {
		return fmt.Errorf("telegram %s to %d: %w", kind, chatID, err)
	}
	return nil
}

func replyMarkup(kb *chat.Keyboard) any {
	if kb == nil {
		return nil
	}
	if len(kb.Inline) > 0 {
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb.Inline))
		for _, r := range kb.Inline {
			row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
			for _, b := range r {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Action.Token()))
			}
			rows = append(rows, row)
		}
		return tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	if len(kb.Menu) > 0 {
		rows := make([][]tgbotapi.KeyboardButton, 0, len(kb.Menu))
		for _, r := range kb.Menu {
			row := make([]tgbotapi.KeyboardButton, 0, len(r))
			for _, label := range r {
				row = append(row, tgbotapi.NewKeyboardButton(label))
			}
			rows = append(rows, row)
		}
		markup := tgbotapi.NewReplyKeyboard(rows...)
		markup.ResizeKeyboard = true
		return markup
	}
	return nil
}
