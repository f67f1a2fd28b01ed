package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	goredis "github.com/redis/go-redis/v9"

	"github.com/notifyrelay/relay/internal/config"
	"github.com/notifyrelay/relay/internal/delivery"
	queueredis "github.com/notifyrelay/relay/internal/queue/redis"
	"github.com/notifyrelay/relay/internal/storage/postgres"
	"github.com/notifyrelay/relay/internal/worker"
)

func main() {
	// Load the dotenv if exists
	_ = godotenv.Load()

	var env config.Worker
	err := envconfig.Process("", &env)
	if err != nil {
		log.Fatal("Cannot load env:", err)
	}

	// Setup structured logging
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(h))

	slog.Info("Starting Notification Relay Worker")

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

	// Initialize storage, delivery and worker layers
	store := postgres.NewStore(dbPool)
	logs := postgres.NewLogStore(dbPool, env.Retry.ResponseBodyLimitBytes, env.Retry.ErrorMessageLimitBytes)
	queue := queueredis.NewQueue(redisClient)

	executor := delivery.NewExecutor(env.Delivery.ConnectTimeout(), env.Delivery.ReadTimeout())
	handler := delivery.NewHandler(store, logs, env.Retry.BaseDelaySeconds, env.Retry.Jitter)

	pool := worker.NewPool(store, queue, executor, handler, worker.Config{
		Concurrency: env.Concurrency,
		PollTimeout: env.PollTimeout(),
	})
	scheduler := worker.NewRetryScheduler(store, queue, env.Retry.SchedulerInterval())
	sweeper := worker.NewRecoverySweeper(store, queue, env.Retry.SweeperInterval(), env.Retry.StuckThreshold())

	pool.Start()
	scheduler.Start()
	sweeper.Start()

	// Wait for shutdown signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("Shutting down worker...")
	scheduler.Stop()
	sweeper.Stop()
	pool.Stop()

	slog.Info("Worker exited gracefully")
}
