package services

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Engine is the set of operations the transports expose. AuthService is
// the only production implementation.
type Engine interface {
	Register(ctx context.Context, email, password string) (*Message, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	RefreshToken(ctx context.Context, subject string) (*AuthResult, error)
	GetUserInfo(ctx context.Context, subject string) (*models.PublicUser, error)
	ChangePassword(ctx context.Context, subject, currentPassword, newPassword string) (*Message, error)
	RequestPasswordReset(ctx context.Context, email string) (*Message, error)
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) (*Message, error)
	VerifyEmail(ctx context.Context, token string) (*Message, error)
	Logout(ctx context.Context, claims *auth.Claims) (*Message, error)
}

var _ Engine = (*AuthService)(nil)
