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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/WishUponASnowflake/astrbot-plugin-angel-eye/configs"
	"github.com/WishUponASnowflake/astrbot-plugin-angel-eye/internal/application/services"
	"github.com/WishUponASnowflake/astrbot-plugin-angel-eye/internal/core/ports"
	"github.com/WishUponASnowflake/astrbot-plugin-angel-eye/internal/infrastructure/db"
	"github.com/WishUponASnowflake/astrbot-plugin-angel-eye/internal/infrastructure/health"
	"github.com/WishUponASnowflake/astrbot-plugin-angel-eye/internal/infrastructure/httpserver"
	"github.com/WishUponASnowflake/astrbot-plugin-angel-eye/internal/infrastructure/memory"
	"github.com/WishUponASnowflake/astrbot-plugin-angel-eye/internal/infrastructure/metrics"
	"github.com/WishUponASnowflake/astrbot-plugin-angel-eye/internal/infrastructure/objectstore"
	"github.com/WishUponASnowflake/astrbot-plugin-angel-eye/internal/infrastructure/redis"
	"github.com/WishUponASnowflake/astrbot-plugin-angel-eye/internal/infrastructure/repositories"
)

func main() {
	// Load configuration
	cfg, err := configs.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Starting AngelEye knowledge cache...")

	// Initialize the backing store selected by configuration
	var (
		store       ports.Store
		checkers    []ports.HealthChecker
		stopCleanup func()
	)

	switch cfg.Cache.Backend {
	case configs.BackendRedis:
		redisClient, err := redis.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis:", err)
		}
		defer redisClient.Close()

		logger.Info("Connected to Redis successfully")

		store = redis.NewRedisStore(redisClient, cfg.Cache.KeyPrefix)
		checkers = append(checkers, health.NewRedisHealthChecker(redisClient))

	case configs.BackendPostgres:
		database, err := db.NewDatabaseWithConfig(&cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database:", err)
		}
		defer database.Close()

		logger.Info("Connected to database successfully")

		// Run migrations
		if err := database.Migrate(cfg.Database.MigrationsPath); err != nil {
			logger.Warn("Failed to run migrations:", err)
		}

		pgStore := repositories.NewKnowledgeStore(database, logger)
		store = pgStore
		checkers = append(checkers, health.NewDBHealthChecker(database))
		stopCleanup = startExpiryCleanup(pgStore, logger)

	case configs.BackendNATS:
		nc, js, err := objectstore.Connect(&cfg.NATS)
		if err != nil {
			logger.Fatal("Failed to connect to NATS:", err)
		}
		defer nc.Close()

		logger.Info("Connected to NATS successfully")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		natsStore, err := objectstore.NewStore(ctx, js, &cfg.NATS, cfg.Cache.DefaultTTL)
		cancel()
		if err != nil {
			logger.Fatal("Failed to initialize object store:", err)
		}
		store = natsStore
		checkers = append(checkers, health.NewNATSHealthChecker(nc))

	default:
		store = memory.NewMemoryStore()
		logger.Info("Using in-memory knowledge store")
	}

	cache := services.NewKnowledgeCacheService(store, cfg.Cache.DefaultTTL, logger)
	prometheus.MustRegister(metrics.NewStatsCollector(cache))

	// Create server configuration
	serverConfig := &httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		TLSCertFile:  cfg.Server.TLSCertFile,
		TLSKeyFile:   cfg.Server.TLSKeyFile,
	}

	deps := httpserver.ServerDeps{
		Cache:          cache,
		HealthCheckers: checkers,
	}

	server := httpserver.NewServer(serverConfig, logger, deps)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if stopCleanup != nil {
		stopCleanup()
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown:", err)
	}

	stats := cache.Stats()
	logger.WithFields(logrus.Fields{
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"hit_rate": stats.HitRate,
	}).Info("Final cache statistics")

	logger.Info("Server exited")
}

// startExpiryCleanup purges expired Postgres rows hourly until the returned
// stop function is called.
func startExpiryCleanup(store *repositories.KnowledgeStore, logger *logrus.Logger) func() {
	ticker := time.NewTicker(time.Hour)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				if err := store.DeleteExpired(ctx); err != nil {
					logger.WithError(err).Warn("expired entry cleanup failed")
				}
				cancel()
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}
