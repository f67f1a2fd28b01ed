package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	goredis "github.com/redis/go-redis/v9"

	"github.com/notifyrelay/relay/db"
	"github.com/notifyrelay/relay/internal/api"
	"github.com/notifyrelay/relay/internal/config"
	queueredis "github.com/notifyrelay/relay/internal/queue/redis"
	"github.com/notifyrelay/relay/internal/service"
	"github.com/notifyrelay/relay/internal/storage/postgres"

	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	// Load the dotenv if exists
	_ = godotenv.Load()

	var env config.Server
	err := envconfig.Process("", &env)
	if err != nil {
		log.Fatal("Cannot load env:", err)
	}

	// Setup structured logging
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(h))

	slog.Info("Starting Notification Relay API Server")

	// Run database migrations
	d, err := iofs.New(db.Migrations, "migrations")
	if err != nil {
		log.Fatal("Failed to load migrations:", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, env.Database.ToMigrationUri())
	if err != nil {
		log.Fatal("Failed to create migrate instance:", err)
	}

	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal("Failed to run migrations:", err)
		}
	}
	slog.Info("Migrations ran successfully")

	// Initialize database connection pool
	dbPool, err := pgxpool.New(context.Background(), env.Database.ToDbConnectionUri())
	if err != nil {
		log.Fatal("Failed to create database pool:", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		log.Fatal("Failed to ping database:", err)
	}
	slog.Info("Database connection established")

	// Initialize queue backend
	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     env.Redis.Addr(),
		Password: env.Redis.Password,
		DB:       env.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to ping redis:", err)
	}
	slog.Info("Redis connection established")

	// Initialize storage and service layers
	store := postgres.NewStore(dbPool)
	logs := postgres.NewLogStore(dbPool, env.Retry.ResponseBodyLimitBytes, env.Retry.ErrorMessageLimitBytes)
	queue := queueredis.NewQueue(redisClient)
	svc := service.NewTaskService(store, logs, queue, env.Retry.MaxRetries)

	var mockTarget *api.MockTarget
	if env.MockTargetEnabled {
		mockTarget = api.NewMockTarget()
		slog.Info("Mock delivery targets enabled")
	}

	apiHandler := api.NewHandler(svc, mockTarget)

	r := gin.Default()
	apiHandler.RegisterRoutes(r)

	// Health check endpoints
	r.GET("/readiness", func(c *gin.Context) {
		if err := dbPool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": "database unavailable"})
			return
		}
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": "redis unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/liveness", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive"})
	})

	srv := &http.Server{
		Addr:    ":" + env.ServerPort,
		Handler: r,
	}

	// Start HTTP server in goroutine
	go func() {
		slog.Info("HTTP server listening", "port", env.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error:", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	slog.Info("API server exited gracefully")
}
