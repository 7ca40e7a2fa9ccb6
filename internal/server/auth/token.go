// Package auth issues and verifies the signed bearer tokens handed to
// clients after login.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretBytes is the shortest HMAC secret NewTokenCodec accepts.
const MinSecretBytes = 32

// Claims is the token payload: the registered claims plus the account email.
// Subject carries the account id and ID the token id used for revocation.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// IssuedToken is a freshly signed token and its expiry.
type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

type TokenCodec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

type Option func(*TokenCodec)

// WithClock overrides the time source used to validate expiry.
func WithClock(now func() time.Time) Option {
	return func(c *TokenCodec) { c.now = now }
}

func WithIssuer(issuer string) Option {
	return func(c *TokenCodec) { c.issuer = issuer }
}

// NewTokenCodec returns an HS256 codec. It refuses secrets shorter than
// MinSecretBytes.
func NewTokenCodec(secret []byte, opts ...Option) (*TokenCodec, error) {
	if len(secret) < MinSecretBytes {
		return nil, common.ErrSecretTooShort
	}
	c := &TokenCodec{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue signs a token for subject valid for ttl starting at issuedAt.
func (c *TokenCodec) Issue(subject, email string, issuedAt time.Time, ttl time.Duration) (*IssuedToken, error) {
	id := uuid.NewString()
	expiresAt := issuedAt.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: email,
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return nil, err
	}

	return &IssuedToken{Token: signed, ID: id, ExpiresAt: expiresAt.Truncate(time.Second)}, nil
}

// Verify checks the signature and expiry of tokenString. Failures are
// reported as common.ErrTokenExpired, common.ErrTokenBadSignature or
// common.ErrTokenMalformed.
func (c *TokenCodec) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, common.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, common.ErrTokenBadSignature
		default:
			return nil, common.ErrTokenMalformed
		}
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrTokenMalformed
	}

	return claims, nil
}
