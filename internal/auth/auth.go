// Package auth defines the TokenVerifier collaborator boundary: the
// dispatcher and REST surface depend only on this interface, never on a
// specific signing scheme. See internal/authtest for a JWT-based reference
// implementation.
package auth

import "fmt"

// TokenInfo is what a valid token resolves to.
type TokenInfo struct {
	Groups    []string
	ExpiresAt int64
}

// PrimaryGroup returns groups[0], the group newly created sessions are
// tagged with, or nil if the token carries no groups.
func (t TokenInfo) PrimaryGroup() *string {
	if len(t.Groups) == 0 {
		return nil
	}
	return &t.Groups[0]
}

// AuthErrorCause distinguishes why verification failed.
type AuthErrorCause string

const (
	ErrCauseMissingToken AuthErrorCause = "missing_token"
	ErrCauseMalformed    AuthErrorCause = "malformed_token"
	ErrCauseExpired      AuthErrorCause = "expired_token"
	ErrCauseInvalidSig   AuthErrorCause = "invalid_signature"
)

// AuthError is returned by TokenVerifier.Verify on any failure.
type AuthError struct {
	Cause AuthErrorCause
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error: %s", e.Cause)
}

// TokenVerifier is the external collaborator boundary: the exact signing
// scheme (HS256, audience claim, jti revocation) is not part of the core's
// contract.
type TokenVerifier interface {
	Verify(token string) (TokenInfo, *AuthError)
}
