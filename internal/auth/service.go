package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-resto/internal/common"
)

const defaultAccessTTL = 15 * time.Minute

// Config configures the token service.
type Config struct {
	Secret         string
	Issuer         string
	Audience       string
	ClockSkew      time.Duration
	AccessTokenTTL time.Duration
}

// Service verifies access tokens issued by the account service and turns them into identities.
type Service struct {
	secret    []byte
	issuer    string
	audience  string
	clockSkew time.Duration
	accessTTL time.Duration
	now       func() time.Time
	signer    jwa.SignatureAlgorithm
	validator TokenValidator
}

// NewService constructs a Service instance with sane defaults.
func NewService(cfg Config) (*Service, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	clockSkew := cfg.ClockSkew
	if clockSkew < 0 {
		clockSkew = 0
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	audience := strings.TrimSpace(cfg.Audience)
	return &Service{
		secret:    []byte(secret),
		issuer:    issuer,
		audience:  audience,
		clockSkew: clockSkew,
		accessTTL: accessTTL,
		now:       time.Now,
		signer:    jwa.HS256,
		validator: TokenValidator{
			Issuer:    issuer,
			Audience:  audience,
			ClockSkew: clockSkew,
			Algorithm: jwa.HS256,
		},
	}, nil
}

// WithNow overrides the clock, primarily for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ParseAccessToken validates an access token and returns the caller identity it carries.
func (s *Service) ParseAccessToken(token string) (common.Identity, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return common.Identity{}, unauthorized("missing token", nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return common.Identity{}, unauthorized("invalid token", err)
	}
	if s.validator.Algorithm != "" && algorithm != s.validator.Algorithm {
		return common.Identity{}, unauthorized("invalid token", fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, s.secret), jwt.WithValidate(false))
	if err != nil {
		return common.Identity{}, unauthorized("invalid token", err)
	}
	id, err := s.validator.Identity(parsed, algorithm, s.now())
	if err != nil {
		return common.Identity{}, unauthorized("invalid token", err)
	}
	return id, nil
}

// IssueAccessToken signs a token for id. The account service owns issuance in production; this is
// used by tooling and tests.
func (s *Service) IssueAccessToken(id common.Identity) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTTL)
	builder := jwt.NewBuilder().
		Subject(id.UserID).
		IssuedAt(now).
		NotBefore(now.Add(-s.clockSkew)).
		Expiration(expiresAt).
		Claim(ClaimIdentityVerified, id.IdentityVerified)
	if s.issuer != "" {
		builder = builder.Issuer(s.issuer)
	}
	if s.audience != "" {
		builder = builder.Audience([]string{s.audience})
	}
	if len(id.Groups) > 0 {
		builder = builder.Claim(ClaimGroups, id.Groups)
	}
	token, err := builder.Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(s.signer, s.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		if alg == jwa.NoSignature {
			return "", errors.New("auth: token uses none algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", fmt.Errorf("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}

func unauthorized(message string, err error) error {
	return common.NewAppError("UNAUTHORIZED", message, http.StatusUnauthorized, err)
}
