package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/backend-resto/internal/auth"
	"github.com/noah-isme/backend-resto/internal/catalog"
	"github.com/noah-isme/backend-resto/internal/checkout"
	"github.com/noah-isme/backend-resto/internal/events"
	"github.com/noah-isme/backend-resto/internal/health"
	"github.com/noah-isme/backend-resto/internal/lock"
	"github.com/noah-isme/backend-resto/internal/obs"
	"github.com/noah-isme/backend-resto/internal/order"
	"github.com/noah-isme/backend-resto/internal/pricing"
	"github.com/noah-isme/backend-resto/internal/ratelimit"
	"github.com/noah-isme/backend-resto/internal/security"
	"github.com/noah-isme/backend-resto/internal/tasks"
	"github.com/noah-isme/backend-resto/internal/voucher"
)

// StaffGroup is the user group allowed to manage vouchers.
const StaffGroup = "staff"

const maxBodyBytes = 256 << 10

// Handlers is everything NewRouter mounts. Nil handlers leave their routes unmounted.
type Handlers struct {
	Auth           *auth.Service
	Health         health.Handler
	Catalog        *catalog.Handler
	Checkout       *checkout.Handler
	Orders         *order.Handler
	Vouchers       *voucher.Handler
	QuoteLimiter   *limiter.Limiter
	HTTPMetrics    *obs.HTTPMetrics
	Gatherer       prometheus.Gatherer
	Logger         zerolog.Logger
	AllowedOrigins []string
}

// NewHandlers builds the HTTP handlers over opened dependencies.
func NewHandlers(deps *Dependencies) (Handlers, error) {
	cfg := deps.Config

	authSvc, err := auth.NewService(auth.Config{
		Secret:    cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		Audience:  cfg.JWTAudience,
		ClockSkew: 30 * time.Second,
	})
	if err != nil {
		return Handlers{}, err
	}

	catalogSvc, err := catalog.NewService(catalog.ServiceConfig{
		Queries: catalog.Store{DB: deps.DB},
		Cache:   catalog.NewCache(deps.Redis, cfg.CatalogCacheTTL),
	})
	if err != nil {
		return Handlers{}, err
	}

	quoteLimiter, err := ratelimit.New(cfg.QuoteRateLimit, deps.Redis, "ratelimit:quote")
	if err != nil {
		return Handlers{}, err
	}

	bus := &events.Bus{
		Store: events.Store{DB: deps.DB},
		Notifiers: []events.Notifier{
			tasks.Enqueuer{Client: deps.Tasks, Queue: cfg.InvoiceQueue, Metrics: deps.Pricing},
		},
	}

	vouchers := &voucher.Service{Q: voucher.Store{DB: deps.DB}}
	checkoutSvc := &checkout.Service{
		Catalog:  catalogSvc,
		Vouchers: vouchers,
		Store:    checkout.PgxStore{Pool: deps.DB},
		Locker:   lock.Locker{R: deps.Redis, RetryBackoff: 50 * time.Millisecond, MaxWait: cfg.CheckoutLockTTL},
		LockTTL:  cfg.CheckoutLockTTL,
		Engine:   pricing.Engine{Rounding: cfg.PricingRounding, Observer: deps.Pricing},
		Currency: cfg.CurrencyCode,
		Events:   bus,
		Metrics:  deps.Pricing,
		Now:      time.Now,
		NewID:    uuid.New,
	}

	return Handlers{
		Auth: authSvc,
		Health: health.Handler{
			Checker:      health.Probes{DB: deps.DB, Redis: deps.Redis},
			DBTimeout:    500 * time.Millisecond,
			RedisTimeout: 300 * time.Millisecond,
		},
		Catalog:        catalog.NewHandler(catalog.HandlerConfig{Service: catalogSvc}),
		Checkout:       &checkout.Handler{Svc: checkoutSvc, Validate: deps.Validator},
		Orders:         &order.Handler{Orders: order.Store{DB: deps.DB}},
		Vouchers:       &voucher.Handler{Svc: vouchers, Validate: deps.Validator},
		QuoteLimiter:   quoteLimiter,
		HTTPMetrics:    obs.NewHTTPMetrics(cfg.MetricsNamespace, nil, deps.Registry),
		Gatherer:       deps.Registry,
		Logger:         deps.Logger,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}, nil
}

// NewRouter mounts the API routes and the shared middleware chain.
func NewRouter(h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.HTTPObs{Metrics: h.HTTPMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: h.Logger}.Middleware)
	r.Use(security.Headers{EnableHSTS: true}.Middleware)
	r.Use(security.BodyLimit{Max: maxBodyBytes}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(h.AllowedOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Total-Count", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: len(h.AllowedOrigins) > 0,
		MaxAge:           300,
	}))

	if h.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/health/live", h.Health.Live)
	r.Get("/health/ready", h.Health.Ready)

	authMW := auth.Middleware{Service: h.Auth}
	limit := func(next http.Handler) http.Handler { return next }
	if h.QuoteLimiter != nil {
		logger := h.Logger
		limit = ratelimit.Handler{
			Limiter: h.QuoteLimiter,
			Key:     ratelimit.ClientIP,
			OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") },
		}.Middleware
	}

	r.Route("/api/v1", func(v chi.Router) {
		if h.Catalog != nil {
			v.Get("/menu/{productRef}/price", h.Catalog.Price)
		}
		if h.Checkout != nil {
			v.With(limit, authMW.Authenticate).Post("/pricing/quote", h.Checkout.Quote)
		}

		v.Group(func(authR chi.Router) {
			authR.Use(authMW.RequireAuth)
			if h.Checkout != nil {
				authR.Post("/orders", h.Checkout.PlaceOrder)
			}
			if h.Orders != nil {
				authR.Get("/orders", h.Orders.List)
				authR.Get("/orders/{orderId}", h.Orders.Get)
			}
		})

		if h.Vouchers != nil {
			v.Route("/admin/vouchers", func(admin chi.Router) {
				admin.Use(authMW.RequireAuth)
				admin.Use(auth.RequireGroup(StaffGroup))
				admin.Post("/", h.Vouchers.Create)
				admin.Get("/{code}", h.Vouchers.Get)
				admin.Put("/{code}", h.Vouchers.Update)
			})
		}
	})
	return r
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
