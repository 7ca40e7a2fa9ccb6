package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// WithClaims stores verified claims in ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFromContext returns the claims stored by WithClaims, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok && c != nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// value. The scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, common.TokenType) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RevocationChecker reports whether a token id has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Authenticator verifies bearer tokens for the transports and, when a
// RevocationChecker is set, rejects tokens revoked by logout.
type Authenticator struct {
	codec   *TokenCodec
	revoked RevocationChecker
}

func NewAuthenticator(codec *TokenCodec, revoked RevocationChecker) *Authenticator {
	return &Authenticator{codec: codec, revoked: revoked}
}

// Authenticate returns the claims of a valid token. Errors are
// common.ErrTokenExpired, common.ErrInvalidToken, common.ErrorUnauthorized
// for a revoked token, or common.ErrServiceUnavailable when the revocation
// store cannot be reached.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*Claims, error) {
	claims, err := a.codec.Verify(token)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if a.revoked != nil && claims.ID != "" {
		revoked, err := a.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, common.ErrServiceUnavailable
		}
		if revoked {
			return nil, common.ErrorUnauthorized
		}
	}

	return claims, nil
}
