package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-resto/internal/common"
)

func identityEcho(t *testing.T, seen *common.Identity, ok *bool) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen, *ok = common.IdentityFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthenticateAttachesIdentity(t *testing.T) {
	svc := newTestService(t, "s3cret")
	token, _, err := svc.IssueAccessToken(common.Identity{UserID: "user-1", Groups: []string{"staff"}})
	require.NoError(t, err)

	var seen common.Identity
	var ok bool
	h := Middleware{Service: svc}.Authenticate(identityEcho(t, &seen, &ok))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.True(t, ok)
	assert.Equal(t, "user-1", seen.UserID)
	assert.Equal(t, []string{"staff"}, seen.Groups)
}

func TestAuthenticateAllowsAnonymous(t *testing.T) {
	var seen common.Identity
	var ok bool
	h := Middleware{Service: newTestService(t, "s3cret")}.Authenticate(identityEcho(t, &seen, &ok))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, ok)
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	var seen common.Identity
	var ok bool
	h := Middleware{Service: newTestService(t, "s3cret")}.RequireAuth(identityEcho(t, &seen, &ok))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, ok)
}

func TestRequireAuthReadsCookie(t *testing.T) {
	svc := newTestService(t, "s3cret")
	token, _, err := svc.IssueAccessToken(common.Identity{UserID: "user-9"})
	require.NoError(t, err)

	var seen common.Identity
	var ok bool
	h := Middleware{Service: svc, AccessCookie: "access_token"}.RequireAuth(identityEcho(t, &seen, &ok))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "user-9", seen.UserID)
}

func TestRequireGroup(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := RequireGroup("staff")(next)

	cases := []struct {
		name string
		id   *common.Identity
		want int
	}{
		{name: "anonymous", want: http.StatusUnauthorized},
		{name: "member", id: &common.Identity{UserID: "u", Groups: []string{"staff"}}, want: http.StatusNoContent},
		{name: "outsider", id: &common.Identity{UserID: "u", Groups: []string{"vip"}}, want: http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.id != nil {
				req = req.WithContext(common.WithIdentity(req.Context(), *tc.id))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
