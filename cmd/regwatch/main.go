package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"regwatch/internal/aggregator"
	"regwatch/internal/config"
	"regwatch/internal/db"
	"regwatch/internal/logger"
	"regwatch/internal/server"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	logger.Init()
	defer logger.Log.Info("Application stopped")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Log.Fatalf("Config load error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Log.Fatalf("Config validation error: %v", err)
	}

	agg := aggregator.FromConfig(cfg)

	// The archive is optional: without DATABASE_URL the service runs
	// purely from live aggregation.
	var feedbackStore server.FeedbackStore
	var newsArchive server.NewsArchive
	if cfg.DatabaseURL != "" {
		database, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Log.Fatalf("DB connection error: %v", err)
		}
		defer database.Close()

		if err := database.CreateSchema(ctx); err != nil {
			logger.Log.Fatalf("Schema creation error: %v", err)
		}
		feedbackStore = database
		newsArchive = database

		if cfg.PollInterval > 0 {
			go agg.StartArchivePolling(ctx, database, time.Duration(cfg.PollInterval)*time.Minute)
		}
	}

	srv := server.NewServer(agg, feedbackStore, newsArchive, cfg.AnalyticsUpstream)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/news", srv.GetNews)
	mux.HandleFunc("POST /api/analytics", srv.RelayAnalytics)
	mux.HandleFunc("POST /api/feedback", srv.SubmitFeedback)
	mux.HandleFunc("GET /health", srv.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	handler := server.RequestIDMiddleware(mux)
	handler = server.LoggingMiddleware(handler)

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: handler}
	go func() {
		logger.Log.Infof("Starting HTTP server on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down...")
	ctxShutdown, cancelShutdown := context.WithTimeout(ctx, 5*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		logger.Log.Fatalf("Forced shutdown: %v", err)
	}
}
