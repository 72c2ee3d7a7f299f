package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"recipe-box/internal/app"
	"recipe-box/internal/config"
	"recipe-box/internal/logging"
	"recipe-box/internal/telegram"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		panic(err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Bot failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	if err := cfg.RequireTelegram(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Initialize the application
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Planner().Refresh(ctx); err != nil {
		return err
	}

	// 3. Initialize Telegram Bot
	bot, err := telegram.NewBot(cfg.TelegramBotToken, cfg.TelegramWebhookURL, telegram.Deps{
		Planner:        a.Planner(),
		Clipper:        a.Clipper(),
		Recipes:        a.Library(),
		Metrics:        a.MetricsStore(),
		DataPaths:      a.DataPaths(),
		AllowedUserIDs: cfg.TelegramAllowedUserIDs,
		Logger:         logger.Named("telegram"),
	})
	if err != nil {
		return err
	}

	if cfg.TelegramWebhookURL == "" {
		logger.Info("Polling for updates")
		return bot.Run(ctx)
	}

	// 4. Start Server with Graceful Shutdown
	mux := http.NewServeMux()
	bot.RegisterHandlers(mux)
	mux.Handle("/metrics", a.Collector().Handler())

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Telegram Bot Server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctxShutdown)
}
