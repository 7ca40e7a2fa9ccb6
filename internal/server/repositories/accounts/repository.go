// Package accounts stores credential records. Two implementations share the
// Repository contract: PostgreSQL for production and an in-memory map for
// development and tests.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository persists accounts. Lookups return common.ErrorNotFound when
// nothing matches. Update is conditional on Version: it fails with
// common.ErrVersionConflict when the stored row has moved on, and on success
// bumps account.Version to the stored value.
type Repository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByVerificationToken(ctx context.Context, token string) (*models.Account, error)
	GetByResetToken(ctx context.Context, token string) (*models.Account, error)
	Update(ctx context.Context, account *models.Account) error
}
