package main

import (
	"context"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-resto/internal/app"
	"github.com/noah-isme/backend-resto/internal/config"
	"github.com/noah-isme/backend-resto/internal/obs"
	"github.com/noah-isme/backend-resto/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	cfg.RunMigrations = false

	logger := obs.NewLogger("resto-worker", cfg.LogFormat, cfg.LogLevel).With().Str("component", "worker").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	deps, err := app.Open(ctx, cfg, logger, "worker")
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("open dependencies")
	}
	defer deps.Close()

	opt, err := app.RedisConnOpt(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("task queue connection")
	}

	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency:     cfg.WorkerConcurrency,
		Queues:          map[string]int{cfg.InvoiceQueue: 1},
		ShutdownTimeout: 20 * time.Second,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Error().Err(err).Str("type", task.Type()).Int("retry", retried).Int("max_retry", maxRetry).Msg("task failed")
		}),
	})

	mux := tasks.NewServeMux(tasks.InvoiceHandler{
		Renderer: tasks.LogRenderer{Logger: logger},
		Logger:   logger,
		Metrics:  deps.Pricing,
	})

	logger.Info().Str("queue", cfg.InvoiceQueue).Int("concurrency", cfg.WorkerConcurrency).Msg("worker starting")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped with error")
	}
	logger.Info().Msg("worker shutdown complete")
}
