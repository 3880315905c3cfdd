package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/vapor/penny-bot/internal/api"
	"github.com/vapor/penny-bot/internal/cache"
	"github.com/vapor/penny-bot/internal/config"
	"github.com/vapor/penny-bot/internal/discord"
	"github.com/vapor/penny-bot/internal/expressions"
	"github.com/vapor/penny-bot/internal/gateway"
	"github.com/vapor/penny-bot/internal/messages"
	"github.com/vapor/penny-bot/internal/monitoring"
	"github.com/vapor/penny-bot/internal/notifications"
	"github.com/vapor/penny-bot/internal/reactions"
	"github.com/vapor/penny-bot/internal/responder"
	"github.com/vapor/penny-bot/internal/scheduler"
	"github.com/vapor/penny-bot/internal/storage"
	"github.com/vapor/penny-bot/internal/users"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting Penny")

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	blobs, err := newStorage(startCtx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}

	session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
	if err != nil {
		logrus.Fatalf("Failed to create Discord session: %v", err)
	}
	discordClient := discord.NewClient(session)

	notificationService := notifications.NewService(cfg)
	monitoringService := monitoring.NewService(cfg, notificationService)

	reactionCache := cache.New(cfg.CacheMaxEntries)
	coinService := users.NewClient(cfg.UsersServiceURL, cfg.UsersServiceAPIKey)
	expressionRepository := expressions.NewBlobRepository(blobs)
	respond := responder.New(cfg, discordClient, discordClient, monitoringService)

	schedulerService := scheduler.NewService(cfg, monitoringService, reactionCache, blobs)
	if err := schedulerService.RestoreCache(startCtx); err != nil {
		logrus.Warnf("Starting with an empty cache: %v", err)
	}

	messageHandler := messages.NewHandler(
		cfg,
		reactionCache,
		coinService,
		respond,
		discordClient,
		discordClient,
		expressions.NewMatcher(expressionRepository),
		monitoringService,
	)
	reactionHandler := reactions.NewHandler(cfg, reactionCache, coinService, discordClient, respond, monitoringService)

	bot := gateway.New(session, messageHandler, reactionHandler, cfg.EventTimeout)
	if err := bot.Start(); err != nil {
		logrus.Fatalf("Failed to start gateway: %v", err)
	}

	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}

	apiServer := api.NewServer(cfg.AdminAPIToken, monitoringService, schedulerService, expressionRepository, coinService)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}
	if err := bot.Stop(); err != nil {
		logrus.Errorf("Gateway shutdown failed: %v", err)
	}
	schedulerService.Stop()

	if err := schedulerService.SnapshotNow(ctx); err != nil {
		logrus.Errorf("Final cache snapshot failed: %v", err)
	}

	logrus.Info("Penny exited")
}

// newStorage uses Azure Blob Storage when an account is configured and
// process memory otherwise
func newStorage(ctx context.Context, cfg *config.Config) (storage.StorageInterface, error) {
	if cfg.StorageAccount == "" {
		logrus.Warn("AZURE_STORAGE_ACCOUNT not set, expressions and cache snapshots won't survive a restart")
		return storage.NewMemoryStorage(), nil
	}
	return storage.NewAzureStorage(ctx, cfg.StorageAccount, cfg.StorageContainer)
}
