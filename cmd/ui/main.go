package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crypto-portfolio-go/internal/catalog"
	"crypto-portfolio-go/internal/coingecko"
	"crypto-portfolio-go/internal/config"
	"crypto-portfolio-go/internal/database"
	"crypto-portfolio-go/internal/logger"
	"crypto-portfolio-go/internal/portfolio"
	"crypto-portfolio-go/internal/realtime"
	"crypto-portfolio-go/internal/server"
	"crypto-portfolio-go/internal/storage"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Connect to the database
	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Setup context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := coingecko.NewRestClient(&cfg.CoinGecko, log)
	cat := catalog.Load(ctx, client, log)

	store := storage.NewPortfolioStore(db, cfg.Storage.Key, log)
	tracker := portfolio.NewTracker(log, client, store, portfolio.Options{ResolveByID: cfg.CoinGecko.ResolveByID})
	defer tracker.Close()

	api := server.NewServer(cfg.Server, tracker, cat, realtime.NewHub(log), log)
	if _, err := tracker.Load(ctx); err != nil {
		log.Error("Failed to load portfolio", zap.Error(err))
	}
	api.Start()

	tracker.Run(ctx, time.Duration(cfg.Tracker.RefreshInterval)*time.Second)
	<-ctx.Done()
	log.Info("Shutdown signal received, gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := api.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop API server", zap.Error(err))
	}
	log.Info("Portfolio tracker has been shut down.")
}
