package obs

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-resto/internal/common"
	"github.com/noah-isme/backend-resto/internal/pricing"
)

func TestPricingMetricsObserveEngine(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPricingMetrics("test", reg)

	engine := pricing.Engine{Observer: m}
	items := []pricing.OrderItem{{ProductRef: "pho-bo", UnitPrice: 50_000, Quantity: 1}}
	v := &pricing.Voucher{
		Code:                "BIG",
		Kind:                pricing.FixedValue{Amount: 80_000},
		Applicability:       pricing.AtLeastOneRequired,
		IsActive:            true,
		RemainingUsage:      1,
		EligibleProductRefs: []string{"pho-bo"},
	}
	_, err := engine.ComputeTotals(items, v, pricing.Invocation{})
	require.NoError(t, err)
	v.RemainingUsage = 0
	_, err = engine.ComputeTotals(items, v, pricing.Invocation{})
	require.NoError(t, err)

	require.Equal(t, 1.0, testutil.ToFloat64(m.Clamps.WithLabelValues("fixed_value")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.VoucherRejections.WithLabelValues(string(pricing.ReasonUsageExhausted))))

	m.Quote("preview", pricing.VoucherApplied)
	require.Equal(t, 1.0, testutil.ToFloat64(m.QuotesTotal.WithLabelValues("preview", "applied")))

	again := NewPricingMetrics("test", reg)
	require.Same(t, m.Clamps, again.Clamps)

	var nilMetrics *PricingMetrics
	require.NotPanics(t, func() {
		nilMetrics.Clamped("x", 1, 0)
		nilMetrics.OrderPlaced("ok")
	})
}

func TestRequestLoggerAndHTTPMetrics(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "resto-api", "json", "info")
	reg := prometheus.NewRegistry()
	httpMetrics := NewHTTPMetrics("test", nil, reg)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := common.WithIdentity(r.Context(), common.Identity{UserID: "user-1"})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	r.Use(HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(RequestLogger{Logger: logger}.Middleware)
	r.Get("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		Log(r.Context()).Info().Msg("inside handler")
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/42", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[1], &entry))
	require.Equal(t, "http_request", entry["message"])
	require.Equal(t, "/orders/{id}", entry["route"])
	require.Equal(t, "warn", entry["level"])
	require.Equal(t, "user-1", entry["user_id"])
	require.Equal(t, "resto-api", entry["service"])

	require.Equal(t, 1.0, testutil.ToFloat64(httpMetrics.ReqTotal.WithLabelValues(http.MethodGet, "/orders/{id}", "418")))
}
