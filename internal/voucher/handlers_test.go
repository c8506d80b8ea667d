package voucher

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

func newRouter(q *stubQueries) http.Handler {
	h := &Handler{Svc: &Service{Q: q}, Validate: validator.New()}
	r := chi.NewRouter()
	r.Post("/vouchers", h.Create)
	r.Get("/vouchers/{code}", h.Get)
	r.Put("/vouchers/{code}", h.Update)
	return r
}

func TestCreateAndGetVoucher(t *testing.T) {
	q := newStub()
	router := newRouter(q)

	body := `{"code":"FIX80","kind":"fixed_value","value":"80000","minOrderValue":100000,
		"eligibleProductRefs":["pho-bo"],"maxUsage":10}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/vouchers", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data View `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "fixed_value", created.Data.Kind)
	require.Equal(t, "80000", created.Data.Value)
	require.Equal(t, 10, created.Data.RemainingUsage)
	require.True(t, created.Data.IsActive)
	require.Equal(t, "at_least_one_required", created.Data.Applicability)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/vouchers/FIX80", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/vouchers/NOPE", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateVoucherValidation(t *testing.T) {
	router := newRouter(newStub())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/vouchers",
		strings.NewReader(`{"code":"X","kind":"bogo","value":"1","eligibleProductRefs":[]}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Error struct {
			Code    string            `json:"code"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "VALIDATION_FAILED", body.Error.Code)
	require.Equal(t, "oneof", body.Error.Details["Kind"])
	require.Equal(t, "min", body.Error.Details["EligibleProductRefs"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/vouchers",
		strings.NewReader(`{"code":"P","kind":"percent_order","value":"150","eligibleProductRefs":["pho-bo"]}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateUnknownVoucher(t *testing.T) {
	router := newRouter(newStub())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/vouchers/GHOST",
		strings.NewReader(`{"kind":"fixed_value","value":"100","eligibleProductRefs":["pho-bo"]}`)))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
