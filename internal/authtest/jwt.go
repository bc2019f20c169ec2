// Package authtest is a JWT-based reference implementation of
// auth.TokenVerifier, suitable for tests and single-node deployments. It is
// deliberately not the only possible implementation: the core depends on
// the auth.TokenVerifier interface, not on this package.
package authtest

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/scraptool/corefetch/internal/auth"
)

// Claims is the expected shape of the token's payload: a "groups" claim
// alongside the registered expiry claim.
type Claims struct {
	Groups []string `json:"groups"`
	jwt.RegisteredClaims
}

// JWTVerifier verifies HS256-signed tokens against a single shared secret.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(token string) (auth.TokenInfo, *auth.AuthError) {
	if token == "" {
		return auth.TokenInfo{}, &auth.AuthError{Cause: auth.ErrCauseMissingToken}
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return auth.TokenInfo{}, &auth.AuthError{Cause: auth.ErrCauseExpired}
		}
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return auth.TokenInfo{}, &auth.AuthError{Cause: auth.ErrCauseInvalidSig}
		}
		return auth.TokenInfo{}, &auth.AuthError{Cause: auth.ErrCauseMalformed}
	}
	if !parsed.Valid {
		return auth.TokenInfo{}, &auth.AuthError{Cause: auth.ErrCauseMalformed}
	}

	var expiresAt int64
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Unix()
	}
	return auth.TokenInfo{Groups: claims.Groups, ExpiresAt: expiresAt}, nil
}

// IssueToken mints a token for tests and local development: never used by
// the core request path, only by test fixtures and the CLI's
// token-issuing helper.
func (v *JWTVerifier) IssueToken(groups []string, ttl time.Duration) (string, error) {
	claims := Claims{
		Groups: groups,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
