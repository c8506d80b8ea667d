package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/noah-isme/backend-resto/internal/common"
)

var errNoToken = errors.New("auth: token missing")

// Middleware wires authentication context into HTTP handlers.
type Middleware struct {
	Service      *Service
	AccessCookie string
}

// Authenticate attaches the caller identity to the request context when a valid token is present.
// Requests without a valid token continue anonymously.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := m.authenticateRequest(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth enforces that a valid token is present before executing the next handler.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := m.authenticateRequest(r)
		if err != nil {
			var appErr *common.AppError
			if errors.As(err, &appErr) {
				common.WriteError(w, appErr)
				return
			}
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireGroup rejects callers outside group. It must run after RequireAuth.
func RequireGroup(group string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := common.IdentityFrom(r.Context())
			if !ok {
				common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
				return
			}
			if !slices.Contains(id.Groups, group) {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) authenticateRequest(r *http.Request) (context.Context, error) {
	if m.Service == nil {
		return r.Context(), errors.New("auth: service not configured")
	}
	token := m.extractToken(r)
	if token == "" {
		return r.Context(), errNoToken
	}
	id, err := m.Service.ParseAccessToken(token)
	if err != nil {
		return r.Context(), err
	}
	return common.WithIdentity(r.Context(), id), nil
}

func (m Middleware) extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if m.AccessCookie != "" {
		if cookie, err := r.Cookie(m.AccessCookie); err == nil {
			if value := strings.TrimSpace(cookie.Value); value != "" {
				return value
			}
		}
	}
	return ""
}
