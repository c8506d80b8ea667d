package lock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when the lock could not be taken within the configured wait.
var ErrNotAcquired = errors.New("lock: not acquired")

const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`

// Locker provides a Redis-backed mutual exclusion lock. It serialises order placement per user so the
// per-user voucher usage count read inside the transaction cannot be raced by a parallel submission.
type Locker struct {
	R            redis.UniversalClient
	RetryBackoff time.Duration
	// MaxWait bounds how long WithLock retries before giving up with ErrNotAcquired. Zero waits until
	// the context is done.
	MaxWait time.Duration
}

// CheckoutKey returns the lock key guarding order placement for a user.
func CheckoutKey(userID string) string {
	return "lock:checkout:" + strings.TrimSpace(userID)
}

// WithLock executes fn while holding a lock for the provided key. The lock is released when fn
// returns, and only if it is still owned by this call.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	retry := l.RetryBackoff
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	var deadline <-chan time.Time
	if l.MaxWait > 0 {
		t := time.NewTimer(l.MaxWait)
		defer t.Stop()
		deadline = t.C
	}

	token := uuid.NewString()
	for {
		ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			defer l.release(context.WithoutCancel(ctx), key, token)
			return fn(ctx)
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-deadline:
			timer.Stop()
			return ErrNotAcquired
		case <-timer.C:
		}
	}
}

func (l Locker) release(ctx context.Context, key, token string) {
	if err := l.R.Eval(ctx, releaseScript, []string{key}, token).Err(); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unknown command") {
			if current, getErr := l.R.Get(ctx, key).Result(); getErr == nil && current == token {
				_ = l.R.Del(ctx, key).Err()
			}
		}
	}
}
