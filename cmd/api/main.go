package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-resto/internal/app"
	"github.com/noah-isme/backend-resto/internal/config"
	"github.com/noah-isme/backend-resto/internal/obs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger("resto-api", cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   "resto-api",
			Endpoint:      cfg.OTLPEndpoint,
			SamplingRatio: cfg.TracingSampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			cfg.TracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	deps, err := app.Open(startCtx, cfg, logger, "api")
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("open dependencies")
	}
	defer deps.Close()

	handlers, err := app.NewHandlers(deps)
	if err != nil {
		logger.Fatal().Err(err).Msg("build handlers")
	}

	var handler http.Handler = app.NewRouter(handlers)
	if cfg.TracingEnabled {
		handler = otelhttp.NewHandler(handler, "resto-api")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server stopped")
}
