package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/radiusdt/funnelpulse/internal/config"
	"github.com/radiusdt/funnelpulse/internal/database"
	"github.com/radiusdt/funnelpulse/internal/geo"
	"github.com/radiusdt/funnelpulse/internal/httpserver"
	"github.com/radiusdt/funnelpulse/internal/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg)
	defer logger.Sync()

	logger.Info("starting FunnelPulse",
		zap.String("env", cfg.Server.Env),
		zap.String("addr", cfg.Server.Addr),
	)

	ctx := context.Background()

	// Initialize backing connections; each is optional and the server
	// degrades per-endpoint when one is missing.
	var db *database.PostgresDB
	db, err = database.NewPostgresDB(ctx, cfg.Database, logger)
	if err != nil {
		logger.Warn("PostgreSQL not available, tenant auth limited to master key", zap.Error(err))
		db = nil
	} else {
		defer db.Close()
	}

	var redisDB *database.RedisDB
	redisDB, err = database.NewRedisDB(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis not available, live counts fall back to event store", zap.Error(err))
		redisDB = nil
	} else {
		defer redisDB.Close()
	}

	var clickhouseDB *database.ClickHouseDB
	clickhouseDB, err = database.NewClickHouseDB(ctx, cfg.ClickHouse, logger)
	if err != nil {
		logger.Warn("ClickHouse not available", zap.Error(err))
		clickhouseDB = nil
	} else {
		defer clickhouseDB.Close()
	}

	var geoResolver *geo.Resolver
	if cfg.Geo.Enabled {
		geoResolver, err = geo.NewResolver(cfg.Geo.DatabasePath, cfg.Geo.CacheSize, cfg.Geo.CacheTTL)
		if err != nil {
			logger.Warn("failed to open GeoIP database, enrichment disabled", zap.Error(err))
			geoResolver = nil
		} else {
			defer geoResolver.Close()
		}
	}

	m := metrics.NewMetrics("funnelpulse")

	// Prometheus scrapes its own listener; the public /metrics path
	// belongs to the funnel report.
	if cfg.Metrics.Enabled {
		go func() {
			metricsMux := http.NewServeMux()
			metricsMux.Handle(cfg.Metrics.Path, metrics.Handler())
			addr := ":" + cfg.Metrics.Port
			logger.Info("metrics listener starting", zap.String("addr", addr))
			if err := http.ListenAndServe(addr, metricsMux); err != nil {
				logger.Error("metrics listener failed", zap.Error(err))
			}
		}()
	}

	deps := &httpserver.Dependencies{
		DB:         db,
		Redis:      redisDB,
		ClickHouse: clickhouseDB,
		Geo:        geoResolver,
		Config:     cfg,
		Logger:     logger,
		Metrics:    m,
	}

	handler := httpserver.NewServer(deps)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func setupLogger(cfg *config.Config) *zap.Logger {
	var zapCfg zap.Config

	if cfg.IsDevelopment() || cfg.Log.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	switch cfg.Log.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}

	return logger
}
