package auth

import (
	"encoding/base64"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-resto/internal/common"
)

func newTestService(t *testing.T, secret string) *Service {
	t.Helper()
	svc, err := NewService(Config{Secret: secret, Issuer: "resto", Audience: "resto-api", ClockSkew: time.Second})
	require.NoError(t, err)
	return svc
}

func TestNewServiceRequiresSecret(t *testing.T) {
	_, err := NewService(Config{Secret: "  "})
	require.Error(t, err)
}

func TestParseAccessTokenRoundTripsIdentity(t *testing.T) {
	svc := newTestService(t, "s3cret")
	want := common.Identity{UserID: "user-1", IdentityVerified: true, Groups: []string{"staff", "vip"}}

	token, expiresAt, err := svc.IssueAccessToken(want)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	got, err := svc.ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseAccessTokenDefaultsOptionalClaims(t *testing.T) {
	svc := newTestService(t, "s3cret")
	token, _, err := svc.IssueAccessToken(common.Identity{UserID: "user-2"})
	require.NoError(t, err)

	got, err := svc.ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-2", got.UserID)
	assert.False(t, got.IdentityVerified)
	assert.Empty(t, got.Groups)
}

func TestParseAccessTokenRejectsForeignSignature(t *testing.T) {
	issuer := newTestService(t, "other-secret")
	token, _, err := issuer.IssueAccessToken(common.Identity{UserID: "user-1"})
	require.NoError(t, err)

	_, err = newTestService(t, "s3cret").ParseAccessToken(token)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusUnauthorized, appErr.HTTPStatus)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	svc := newTestService(t, "s3cret")
	svc.WithNow(func() time.Time { return time.Now().Add(-time.Hour) })
	token, _, err := svc.IssueAccessToken(common.Identity{UserID: "user-1"})
	require.NoError(t, err)

	svc.WithNow(time.Now)
	_, err = svc.ParseAccessToken(token)
	require.Error(t, err)
}

func TestParseAccessTokenRejectsNoneAlgorithm(t *testing.T) {
	enc := base64.RawURLEncoding
	header := enc.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payload := enc.EncodeToString([]byte(`{"sub":"user-1","exp":4102444800}`))

	_, err := newTestService(t, "s3cret").ParseAccessToken(header + "." + payload + ".")
	require.Error(t, err)
}

func TestParseAccessTokenRejectsEmpty(t *testing.T) {
	_, err := newTestService(t, "s3cret").ParseAccessToken("   ")
	require.Error(t, err)
}
