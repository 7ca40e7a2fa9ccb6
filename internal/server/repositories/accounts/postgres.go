package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

const selectAccount = `SELECT id, email, password_hash, is_active, is_verified, created_at, updated_at,
		 last_login, failed_login_attempts, locked_until, verification_token, reset_token,
		 reset_token_expires, version
		 FROM accounts`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Account) error {
	query :=
		`INSERT INTO accounts (id, email, password_hash, is_active, is_verified, created_at, updated_at,
		 last_login, failed_login_attempts, locked_until, verification_token, reset_token,
		 reset_token_expires, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1)
		 `

	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.Email, a.PasswordHash, a.IsActive, a.IsVerified, a.CreatedAt, a.UpdatedAt,
		a.LastLogin, a.FailedLoginAttempts, a.LockedUntil, a.VerificationToken, a.ResetToken,
		a.ResetTokenExpires)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	a.Version = 1
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return r.getOne(ctx, selectAccount+` WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.getOne(ctx, selectAccount+` WHERE lower(email) = lower($1)`, email)
}

func (r *PostgresRepository) GetByVerificationToken(ctx context.Context, token string) (*models.Account, error) {
	return r.getOne(ctx, selectAccount+` WHERE verification_token = $1`, token)
}

func (r *PostgresRepository) GetByResetToken(ctx context.Context, token string) (*models.Account, error) {
	return r.getOne(ctx, selectAccount+` WHERE reset_token = $1`, token)
}

func (r *PostgresRepository) Update(ctx context.Context, a *models.Account) error {
	query :=
		`UPDATE accounts SET password_hash = $2, is_active = $3, is_verified = $4, updated_at = $5,
		 last_login = $6, failed_login_attempts = $7, locked_until = $8, verification_token = $9,
		 reset_token = $10, reset_token_expires = $11, version = version + 1
		 WHERE id = $1 AND version = $12
		 RETURNING version
		 `

	var version int64
	err := r.db.QueryRowContext(ctx, query,
		a.ID, a.PasswordHash, a.IsActive, a.IsVerified, a.UpdatedAt,
		a.LastLogin, a.FailedLoginAttempts, a.LockedUntil, a.VerificationToken,
		a.ResetToken, a.ResetTokenExpires, a.Version).Scan(&version)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.missOrConflict(ctx, a.ID)
		}
		return fmt.Errorf("db error: %w", err)
	}

	a.Version = version
	return nil
}

// missOrConflict tells apart a vanished row from a stale version after a
// conditional update matched nothing.
func (r *PostgresRepository) missOrConflict(ctx context.Context, id string) error {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if !exists {
		return common.ErrorNotFound
	}
	return common.ErrVersionConflict
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func scanAccount(row *sql.Row) (*models.Account, error) {
	var (
		a                 models.Account
		lastLogin         sql.NullTime
		lockedUntil       sql.NullTime
		verificationToken sql.NullString
		resetToken        sql.NullString
		resetExpires      sql.NullTime
	)

	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.IsActive, &a.IsVerified, &a.CreatedAt, &a.UpdatedAt,
		&lastLogin, &a.FailedLoginAttempts, &lockedUntil, &verificationToken, &resetToken,
		&resetExpires, &a.Version)
	if err != nil {
		return nil, err
	}

	a.LastLogin = nullTime(lastLogin)
	a.LockedUntil = nullTime(lockedUntil)
	a.VerificationToken = nullString(verificationToken)
	a.ResetToken = nullString(resetToken)
	a.ResetTokenExpires = nullTime(resetExpires)

	return &a, nil
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
