package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-resto/internal/auth"
	"github.com/noah-isme/backend-resto/internal/checkout"
	"github.com/noah-isme/backend-resto/internal/common"
	"github.com/noah-isme/backend-resto/internal/obs"
	"github.com/noah-isme/backend-resto/internal/ratelimit"
	"github.com/noah-isme/backend-resto/internal/voucher"
)

func testHandlers(t *testing.T) (Handlers, *auth.Service) {
	t.Helper()
	authSvc, err := auth.NewService(auth.Config{Secret: "router-secret"})
	require.NoError(t, err)
	quoteLimiter, err := ratelimit.New("1-M", nil, "test")
	require.NoError(t, err)
	reg := NewRegistry()
	return Handlers{
		Auth:         authSvc,
		Checkout:     &checkout.Handler{},
		Vouchers:     &voucher.Handler{},
		QuoteLimiter: quoteLimiter,
		HTTPMetrics:  obs.NewHTTPMetrics("test", nil, reg),
		Gatherer:     reg,
		Logger:       zerolog.Nop(),
	}, authSvc
}

func bearer(t *testing.T, svc *auth.Service, id common.Identity) string {
	t.Helper()
	token, _, err := svc.IssueAccessToken(id)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRouterHealthAndMetrics(t *testing.T) {
	h, _ := testHandlers(t)
	router := NewRouter(h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_http_requests_total")
}

func TestRouterOrdersRequireAuth(t *testing.T) {
	h, _ := testHandlers(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
	NewRouter(h).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterAdminVouchersRequireStaff(t *testing.T) {
	h, svc := testHandlers(t)
	router := NewRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/vouchers/LUNCH", nil)
	req.Header.Set("Authorization", bearer(t, svc, common.Identity{UserID: "u1", Groups: []string{"vip"}}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouterQuoteIsRateLimited(t *testing.T) {
	h, _ := testHandlers(t)
	router := NewRouter(h)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/pricing/quote", strings.NewReader(`{}`))
		req.RemoteAddr = "203.0.113.9:5000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	first := send()
	assert.NotEqual(t, http.StatusTooManyRequests, first.Code)
	second := send()
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
}

func TestNewRegistryGathersRuntimeMetrics(t *testing.T) {
	families, err := NewRegistry().Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "go_goroutines")
}
