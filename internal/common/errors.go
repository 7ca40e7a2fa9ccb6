// Package common defines shared constants and sentinel errors used across
// the layers of gophauth. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")

	// Service-level errors returned to transports.
	ErrorValidation       = errors.New("validation error")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrorUnauthorized     = errors.New("unauthorized")
	ErrInvalidToken       = errors.New("invalid token")
	ErrorInternal         = errors.New("internal error")
	ErrServiceUnavailable = errors.New("service unavailable")

	// Token codec errors.
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenMalformed    = errors.New("token malformed")
	ErrTokenBadSignature = errors.New("token signature invalid")
	ErrSecretTooShort    = errors.New("secret key must be at least 32 bytes")
)
