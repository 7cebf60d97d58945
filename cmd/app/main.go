package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coupon-bot/internal/cache"
	"coupon-bot/internal/config"
	"coupon-bot/internal/convo"
	"coupon-bot/internal/deposit"
	"coupon-bot/internal/dispatch"
	"coupon-bot/internal/httpserver"
	"coupon-bot/internal/inventory"
	"coupon-bot/internal/logging"
	"coupon-bot/internal/metrics"
	"coupon-bot/internal/repo"
	"coupon-bot/internal/tg"
	"coupon-bot/migrations"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting coupon-bot", "env", cfg.AppEnv, "telegram_mode", cfg.TelegramMode, "database", cfg.DatabaseDriver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricRegistry := metrics.Registry(cfg.MetricsNamespace)

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init repository: %w", err)
	}
	defer store.Close()

	if err := store.RunMigrations(ctx, migrations.Files); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrated")

	var dedupe tg.Deduper
	if cfg.RedisAddr != "" {
		redisClient := cache.New(cache.Config{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			UseTLS:    cfg.RedisTLS,
			UpdateTTL: cfg.UpdateDedupTTL,
		}, logger)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("failed closing redis", "error", err)
			}
		}()
		if err := redisClient.Ping(ctx); err != nil {
			logger.Warn("redis ping failed", "error", err)
		}
		dedupe = redisClient
	} else {
		logger.Info("redis not configured, update de-duplication disabled")
	}

	telegram, err := tg.New(tg.Config{
		Token:       cfg.TelegramToken,
		APIEndpoint: cfg.TelegramAPIEndpoint,
	}, metricRegistry, logger)
	if err != nil {
		return fmt.Errorf("init telegram client: %w", err)
	}

	states := convo.NewMachine(store, logger)
	inventoryEngine := inventory.New(store, inventory.NewCatalog(cfg.CouponTypes), metricRegistry, logger)
	depositWorkflow := deposit.New(store, states, deposit.Config{
		MinDiamonds: cfg.MinDeposit,
		Rate:        cfg.DiamondRate,
		Methods:     cfg.DepositMethods,
	}, metricRegistry, logger)

	dispatcher := dispatch.New(store, states, inventoryEngine, depositWorkflow, telegram, dispatch.Config{
		AdminIDs: cfg.AdminIDs,
	}, metricRegistry, logger)
	processor := tg.NewProcessor(dispatcher, dedupe, cfg.UpdateTimeout, metricRegistry, logger)

	handlers := httpserver.Handlers{}
	if cfg.TelegramMode == "webhook" {
		handlers.TelegramWebhook = tg.NewWebhookHandler(cfg.TelegramWebhookSecret, processor, metricRegistry, logger)
		handlers.WebhookPath = cfg.TelegramWebhookPath

		if webhookURL := cfg.WebhookURL(); webhookURL != "" {
			if err := telegram.SetWebhook(ctx, webhookURL, cfg.TelegramWebhookSecret); err != nil {
				return err
			}
		} else {
			logger.Warn("PUBLIC_BASE_URL not set, webhook must be registered manually")
		}
	}
	httpSrv := httpserver.New(cfg.HTTPListenAddr, logger, metricRegistry, handlers, cfg.PublicBasePath)

	if cfg.TelegramMode == "polling" {
		if err := telegram.DeleteWebhook(ctx); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(httpSrv.Start)

	if cfg.TelegramMode == "polling" {
		poller := tg.NewPoller(telegram, processor, cfg.TelegramPollTimeout, logger)
		g.Go(func() error { return poller.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repo.Store, error) {
	if cfg.DatabaseDriver == "sqlite" {
		return repo.NewSQLite(ctx, cfg.DatabaseURL, logger)
	}
	return repo.New(ctx, repo.PostgresConfig{
		DatabaseURL:      cfg.DatabaseURL,
		Schema:           cfg.DatabaseSchema,
		StatementTimeout: cfg.DatabaseStatementTimeout,
	}, logger)
}
