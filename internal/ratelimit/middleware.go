package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// New builds a limiter for a formatted rate such as "120-M". A nil Redis client selects the
// in-process memory store.
func New(rate string, client *redis.Client, prefix string) (*limiter.Limiter, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}
	opts := limiter.StoreOptions{Prefix: prefix, CleanUpInterval: limiter.DefaultCleanUpInterval}
	var store limiter.Store
	if client == nil {
		store = memory.NewStoreWithOptions(opts)
	} else {
		store, err = limiterredis.NewStoreWithOptions(client, opts)
		if err != nil {
			return nil, err
		}
	}
	return limiter.New(store, parsed), nil
}

// Handler enforces rate limits before delegating to the next handler.
type Handler struct {
	Limiter *limiter.Limiter
	Key     func(*http.Request) string
	OnError func(error)
}

// Middleware implements the http.Handler middleware interface. Limiter failures fail open.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		keyFn := h.Key
		if keyFn == nil {
			keyFn = ClientIP
		}
		lctx, err := h.Limiter.Get(r.Context(), keyFn(r))
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		headers.Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			retryAfter := int(time.Until(time.Unix(lctx.Reset, 0)).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClientIP keys requests by remote address. It expects middleware.RealIP to have run first.
func ClientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
