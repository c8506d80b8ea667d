package app

import (
	"context"
	"errors"
	"fmt"

	validator "github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-resto/internal/config"
	"github.com/noah-isme/backend-resto/internal/db"
	"github.com/noah-isme/backend-resto/internal/obs"
)

// Dependencies holds the infrastructure clients shared by the API and the worker.
type Dependencies struct {
	Config    *config.Config
	Logger    zerolog.Logger
	DB        *pgxpool.Pool
	Redis     *redis.Client
	Tasks     *asynq.Client
	Registry  *prometheus.Registry
	Validator *validator.Validate
	Pricing   *obs.PricingMetrics
}

// Open connects Postgres and Redis, registers collectors and optionally applies migrations.
// The caller owns the returned Dependencies and must Close them.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger, component string) (*Dependencies, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	deps := &Dependencies{
		Config:    cfg,
		Logger:    logger,
		Registry:  NewRegistry(),
		Validator: validator.New(validator.WithRequiredStructEnabled()),
	}
	deps.Pricing = obs.NewPricingMetrics(cfg.MetricsNamespace, deps.Registry)

	if cfg.RunMigrations {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info().Msg("migrations applied")
	}

	pool, err := openPool(ctx, cfg.DatabaseURL, component)
	if err != nil {
		return nil, err
	}
	deps.DB = pool

	client, err := openRedis(ctx, cfg.RedisURL, logger)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Redis = client

	opt, err := RedisConnOpt(cfg)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Tasks = asynq.NewClient(opt)
	return deps, nil
}

// Close releases every client that was opened.
func (d *Dependencies) Close() {
	if d == nil {
		return
	}
	if d.Tasks != nil {
		if err := d.Tasks.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close task client")
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close redis")
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
}

// NewRegistry returns a Prometheus registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// RedisConnOpt derives the asynq connection from REDIS_URL.
func RedisConnOpt(cfg *config.Config) (asynq.RedisConnOpt, error) {
	opt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url for tasks: %w", err)
	}
	return opt, nil
}

func openPool(ctx context.Context, url, component string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "resto-" + component

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func openRedis(ctx context.Context, url string, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
