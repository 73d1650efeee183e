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

	"github.com/joho/godotenv"
	"github.com/mroshb/fitquest/internal/config"
	"github.com/mroshb/fitquest/internal/database"
	"github.com/mroshb/fitquest/internal/metrics"
	"github.com/mroshb/fitquest/internal/scheduler"
	"github.com/mroshb/fitquest/internal/services"
	"github.com/mroshb/fitquest/pkg/logger"
	"github.com/mroshb/fitquest/telegram"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	logger.Init()
	defer logger.Sync()

	logger.Info("Starting FitQuest gamification engine...")

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", err)
	}

	if cfg.AppEnv == "production" {
		if err := cfg.ValidateProductionSecurity(); err != nil {
			logger.Fatal("Production security validation failed", err)
		}
		logger.Info("Production security validation passed")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	if cfg.SeedCatalog {
		if err := database.SeedCatalog(db); err != nil {
			logger.Warn("Failed to seed catalog", "error", err)
		}
	}

	collector := metrics.NewCollector("fitquest")

	var opts []services.Option
	if cfg.TelegramBotToken != "" {
		notifier, err := telegram.NewNotifier(cfg.TelegramBotToken, cfg.AppEnv, telegram.NumericChatID)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram notifier", err)
		}
		opts = append(opts, services.WithNotifier(notifier))
	}
	engine := services.NewEngine(db, cfg, collector, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine.Throttle().StartCleanup(ctx, time.Minute)

	jobs, err := scheduler.New(engine, cfg.RankSchedule, cfg.StreakSweepSchedule)
	if err != nil {
		logger.Fatal("Failed to schedule jobs", err)
	}
	jobs.Start()

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(r.Context())
		}
		if err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	server := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server stopped", "error", err)
		}
	}()

	logger.Info("Engine started successfully", "env", cfg.AppEnv, "metrics_addr", cfg.MetricsAddr)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down gracefully...")
	jobs.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Metrics server shutdown failed", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Info("Engine stopped")
}
