// Package auth extracts bearer credentials and defines the verifier contract
// the admin gate exchanges them through.
package auth

import (
	"context"
	"net/http"
	"regexp"
	"strings"
)

// Identity is a user as confirmed by the identity service.
type Identity struct {
	UserID string
	Email  string
}

// Verifier exchanges a session token for the identity it belongs to.
// Implementations return sentinel.ErrInvalidToken for rejected tokens and
// sentinel.ErrUnavailable when the identity service cannot be reached.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (*Identity, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, token string) (*Identity, error)

func (f VerifierFunc) VerifyToken(ctx context.Context, token string) (*Identity, error) {
	return f(ctx, token)
}

var bearerPattern = regexp.MustCompile(`(?i)^Bearer\s+(.+)$`)

// BearerToken returns the token from an Authorization header value. The scheme
// is matched case-insensitively and any whitespace may separate it from the token.
func BearerToken(header string) (string, bool) {
	m := bearerPattern.FindStringSubmatch(strings.TrimSpace(header))
	if m == nil {
		return "", false
	}
	token := strings.TrimSpace(m[1])
	return token, token != ""
}

// BearerFromRequest reads the bearer token from r's Authorization header.
func BearerFromRequest(r *http.Request) (string, bool) {
	return BearerToken(r.Header.Get("Authorization"))
}
