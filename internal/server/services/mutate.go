package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/accounts"
)

// mutateAttempts bounds the read-modify-write loop: the first try plus one
// retry after a version conflict.
const mutateAttempts = 2

// mutate loads an account, lets apply change it and writes it back with a
// version-conditional update.
//
// apply returns whether the account must be persisted and the outcome to
// hand back to the caller once it is. A lost race reloads the account and
// runs apply again on fresh state, once; a second conflict is reported as
// common.ErrorInternal. A lookup miss is reported as notFound.
//
// The returned account is the last one apply saw, also on error.
func (s *AuthService) mutate(
	ctx context.Context,
	op string,
	notFound error,
	load func(accounts.Repository) (*models.Account, error),
	apply func(a *models.Account, now time.Time) (bool, error),
) (*models.Account, error) {
	repo := s.accounts()

	var account *models.Account
	for attempt := 1; attempt <= mutateAttempts; attempt++ {
		a, err := load(repo)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return account, notFound
			}
			s.logger.Error(ctx, "Account lookup failed", "op", op, "error", err)
			return account, common.ErrorInternal
		}
		account = a

		now := s.clock()
		persist, outcome := apply(a, now)
		if !persist {
			return a, outcome
		}

		a.UpdatedAt = now
		err = repo.Update(ctx, a)
		switch {
		case err == nil:
			return a, outcome
		case errors.Is(err, common.ErrVersionConflict):
			s.logger.Warn(ctx, "Account changed concurrently", "op", op, "account_id", a.ID, "attempt", attempt)
		default:
			s.logger.Error(ctx, "Account update failed", "op", op, "account_id", a.ID, "error", err)
			return a, common.ErrorInternal
		}
	}

	s.logger.Error(ctx, "Account update kept conflicting", "op", op, "account_id", account.ID)
	return account, common.ErrorInternal
}
