package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lamitna/internal/catalog"
	"lamitna/internal/chef"
	"lamitna/internal/config"
	"lamitna/internal/database"
	"lamitna/internal/event"
	"lamitna/internal/fallback"
	"lamitna/internal/httpapi"
	"lamitna/internal/logging"
	"lamitna/internal/metrics"
	"lamitna/internal/planner"
	"lamitna/internal/telegram"
	"lamitna/internal/wizard"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	defer logger.Sync()

	ctx := context.Background()

	// 2. Initialize the AI chef
	collab, closeCollab, err := chef.NewCollaborator(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to create AI collaborator", zap.Error(err))
	}
	defer closeCollab()
	if !cfg.HasAIProvider() {
		logger.Warn("no AI provider configured, every menu will come from the fallback tables")
	}

	// 3. Initialize the database and repositories
	db, err := database.NewDB(cfg.DatabasePath, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	eventRepo := event.NewRepository(db.SQL)
	planRepo := planner.NewPlanRepository(db.SQL)
	metricsStore := metrics.NewStore(db.SQL)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// 4. Initialize Services
	cat := catalog.Default()
	fb := fallback.NewGenerator(cat)
	chefService := chef.NewService(collab, fb, logger.Named("chef"),
		chef.WithTimeout(cfg.AITimeout),
		chef.WithRecorder(metrics.Fanout{metricsStore, collector}),
	)

	deps := httpapi.Deps{
		Chef:     collab,
		Invites:  eventRepo,
		Gatherer: registry,
		Logger:   logger.Named("http"),
	}

	// 5. Initialize the Telegram bot when a token is present
	if cfg.TelegramBotToken != "" {
		api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			logger.Fatal("failed to create telegram client", zap.Error(err))
		}
		bot := telegram.NewBot(cfg, api, eventRepo, metricsStore, wizard.Deps{
			Chef:         chefService,
			Fallback:     fb,
			Plans:        planRepo,
			Events:       eventRepo,
			Catalog:      cat,
			Logger:       logger.Named("wizard"),
			GroceryDelay: cfg.GroceryDelay,
		}, logger.Named("telegram"))

		if cfg.TelegramWebhookURL != "" {
			if err := telegram.SetWebhook(api, cfg.TelegramWebhookURL, logger); err != nil {
				logger.Fatal("failed to set webhook", zap.Error(err))
			}
		}
		deps.Webhook = bot.HandleWebhook
		logger.Info("telegram bot enabled", zap.String("username", api.Self.UserName))
	}

	// 6. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpapi.NewServer(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}
