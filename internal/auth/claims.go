package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-resto/internal/common"
)

const (
	// ClaimIdentityVerified marks callers who completed identity verification.
	ClaimIdentityVerified = "identity_verified"
	// ClaimGroups lists the user groups the caller belongs to.
	ClaimGroups = "groups"
)

// TokenValidator checks a parsed access token and maps its claims onto the caller identity that
// voucher rules evaluate.
type TokenValidator struct {
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Algorithm jwa.SignatureAlgorithm
}

// Identity validates tok at now and returns the identity it carries. Tokens must name a subject and
// an expiry; issuer and audience are enforced when configured.
func (v TokenValidator) Identity(tok jwt.Token, algorithm jwa.SignatureAlgorithm, now time.Time) (common.Identity, error) {
	if tok == nil {
		return common.Identity{}, errors.New("auth: token is nil")
	}
	if v.Algorithm != "" && algorithm != v.Algorithm {
		return common.Identity{}, fmt.Errorf("auth: unexpected token algorithm %q", algorithm)
	}

	opts := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
		jwt.WithAcceptableSkew(max(v.ClockSkew, 0)),
		jwt.WithRequiredClaim(jwt.SubjectKey),
		jwt.WithRequiredClaim(jwt.ExpirationKey),
	}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.Audience))
	}
	if err := jwt.Validate(tok, opts...); err != nil {
		return common.Identity{}, err
	}

	if tok.Subject() == "" {
		return common.Identity{}, errors.New("auth: token subject is empty")
	}
	id := common.Identity{UserID: tok.Subject()}
	if raw, ok := tok.Get(ClaimIdentityVerified); ok {
		id.IdentityVerified, _ = raw.(bool)
	}
	if raw, ok := tok.Get(ClaimGroups); ok {
		id.Groups = stringList(raw)
	}
	return id, nil
}

func stringList(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}
