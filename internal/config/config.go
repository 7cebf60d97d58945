package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every runtime setting read from the environment.
type Config struct {
	AppEnv           string `envconfig:"APP_ENV" default:"development"`
	LogLevel         string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat        string `envconfig:"LOG_FORMAT" default:"text" validate:"oneof=text json"`
	HTTPListenAddr   string `envconfig:"HTTP_LISTEN_ADDR" default:":8080" validate:"required"`
	PublicBaseURL    string `envconfig:"PUBLIC_BASE_URL" validate:"omitempty,url"`
	PublicBasePath   string `envconfig:"PUBLIC_BASE_PATH"`
	MetricsNamespace string `envconfig:"METRICS_NAMESPACE" default:"coupon_bot"`

	DatabaseDriver           string        `envconfig:"DATABASE_DRIVER" default:"postgres" validate:"oneof=postgres sqlite"`
	DatabaseURL              string        `envconfig:"DATABASE_URL" validate:"required"`
	DatabaseSchema           string        `envconfig:"DATABASE_SCHEMA"`
	DatabaseStatementTimeout time.Duration `envconfig:"DATABASE_STATEMENT_TIMEOUT" default:"30s"`

	RedisAddr      string        `envconfig:"REDIS_ADDR"`
	RedisPassword  string        `envconfig:"REDIS_PASSWORD"`
	RedisDB        int           `envconfig:"REDIS_DB" default:"0" validate:"gte=0"`
	RedisTLS       bool          `envconfig:"REDIS_TLS" default:"false"`
	UpdateDedupTTL time.Duration `envconfig:"UPDATE_DEDUP_TTL" default:"24h"`

	TelegramToken         string        `envconfig:"TELEGRAM_TOKEN" validate:"required"`
	TelegramMode          string        `envconfig:"TELEGRAM_MODE" default:"webhook" validate:"oneof=webhook polling"`
	TelegramWebhookPath   string        `envconfig:"TELEGRAM_WEBHOOK_PATH" default:"/webhook/telegram" validate:"startswith=/"`
	TelegramWebhookSecret string        `envconfig:"TELEGRAM_WEBHOOK_SECRET"`
	TelegramAPIEndpoint   string        `envconfig:"TELEGRAM_API_ENDPOINT" default:"https://api.telegram.org/bot%s/%s"`
	TelegramPollTimeout   int           `envconfig:"TELEGRAM_POLL_TIMEOUT" default:"30" validate:"gte=0"`
	UpdateTimeout         time.Duration `envconfig:"UPDATE_TIMEOUT" default:"8s"`

	AdminIDs    []int64  `envconfig:"ADMIN_IDS" validate:"min=1,dive,gt=0"`
	CouponTypes []string `envconfig:"COUPON_TYPES" default:"500,1000,2000,4000" validate:"min=1,dive,required"`
	MinDeposit  int64    `envconfig:"MIN_DEPOSIT" default:"30" validate:"gte=1"`
	DiamondRate int64    `envconfig:"DIAMOND_RATE" default:"1" validate:"gte=1"`
	// DepositMethods lists the enabled payment methods in menu order.
	DepositMethods []string `envconfig:"DEPOSIT_METHODS" default:"upi,amazon" validate:"min=1,unique,dive,oneof=upi amazon"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	cfg.normalise()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// WebhookURL is the public address Telegram should deliver updates to.
// It is empty when no public base URL is configured.
func (c *Config) WebhookURL() string {
	if c.PublicBaseURL == "" {
		return ""
	}
	return strings.TrimRight(c.PublicBaseURL, "/") + c.PublicBasePath + c.TelegramWebhookPath
}

func (c *Config) normalise() {
	c.PublicBasePath = strings.TrimSuffix(strings.TrimSpace(c.PublicBasePath), "/")
	if c.PublicBasePath != "" && !strings.HasPrefix(c.PublicBasePath, "/") {
		c.PublicBasePath = "/" + c.PublicBasePath
	}
	types := c.CouponTypes[:0]
	for _, t := range c.CouponTypes {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}
	c.CouponTypes = types
	methods := c.DepositMethods[:0]
	for _, m := range c.DepositMethods {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			methods = append(methods, m)
		}
	}
	c.DepositMethods = methods
}
