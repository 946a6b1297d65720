package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hunterwarburton/fva/internal/app"
	"github.com/hunterwarburton/fva/internal/config"
	"github.com/hunterwarburton/fva/internal/logger"
	"github.com/hunterwarburton/fva/internal/telegram"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", os.Getenv("FVA_CONFIG"), "Path to YAML config file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	if *debug {
		cfg.LogLevel = "debug"
	}
	logger.InitLevel(cfg.LogLevel)

	logger.Info("Starting bot...")

	if err := cfg.ValidateTelegram(); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
	if logger.IsDebugEnabled() {
		logger.Debug("Configuration loaded: index=%s/%s, milvus=%s, allowed users=%q",
			cfg.Index.Name, cfg.Index.Namespace, cfg.Index.Address, cfg.Telegram.AllowedUserIDs)
	}

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Initializing services...")
	services, err := app.Build(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize services: %v", err)
		os.Exit(1)
	}

	bot, err := telegram.NewBot(cfg.Telegram.Token, services.Pipeline, services.Chat, services.Policy, cfg.Index.Namespace)
	if err != nil {
		logger.Error("Failed to initialize Telegram bot: %v", err)
		os.Exit(1)
	}

	go bot.Start(ctx)
	logger.Info("Bot is running")

	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down bot...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := services.Close(shutdownCtx); err != nil {
		logger.Warn("Closing Milvus connection: %v", err)
	}

	logger.Info("Bot has been shut down")
}
