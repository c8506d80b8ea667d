package security

import (
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestHeadersSetsNoStoreAndHSTS(t *testing.T) {
	h := Headers{EnableHSTS: true, HSTSIncludeSubdomains: true}.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "https://api.example.com/api/v1/pricing/quote", nil)
	req.TLS = &tls.ConnectionState{}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "max-age=31536000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
}

func TestHeadersSkipsHSTSOnPlainHTTP(t *testing.T) {
	h := Headers{EnableHSTS: true}.Middleware(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://localhost/", nil))

	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestBodyLimitPassesSmallBodies(t *testing.T) {
	var got string
	h := BodyLimit{Max: 10}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		got = string(data)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("hello")))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", got)
}

func TestBodyLimitRejectsDeclaredOversize(t *testing.T) {
	h := BodyLimit{Max: 5}.Middleware(okHandler())
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("excessive"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "PAYLOAD_TOO_LARGE")
}

func TestBodyLimitCutsUndeclaredBodies(t *testing.T) {
	var readErr error
	h := BodyLimit{Max: 5}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("excessive"))
	req.ContentLength = -1

	h.ServeHTTP(httptest.NewRecorder(), req)

	var maxErr *http.MaxBytesError
	assert.ErrorAs(t, readErr, &maxErr)
}
