// Package models holds the persistent entities of the auth server.
package models

import (
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/lockout"
)

// Account is the credential record of a single user. Email is unique and
// stored normalized; PasswordHash and the one-time tokens never leave the
// server.
type Account struct {
	ID                  string
	Email               string
	PasswordHash        string `json:"-"`
	IsActive            bool
	IsVerified          bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
	LastLogin           *time.Time
	FailedLoginAttempts int
	LockedUntil         *time.Time
	VerificationToken   *string `json:"-"`
	ResetToken          *string `json:"-"`
	ResetTokenExpires   *time.Time
	Version             int64
}

// Lockout extracts the lockout-relevant state.
func (a *Account) Lockout() lockout.State {
	return lockout.State{FailedAttempts: a.FailedLoginAttempts, LockedUntil: a.LockedUntil}
}

// SetLockout writes a lockout state back onto the account.
func (a *Account) SetLockout(s lockout.State) {
	a.FailedLoginAttempts = s.FailedAttempts
	a.LockedUntil = s.LockedUntil
}

// Clone returns a deep copy so callers can mutate it without aliasing the
// receiver's pointer fields.
func (a *Account) Clone() *Account {
	c := *a
	c.LastLogin = copyTime(a.LastLogin)
	c.LockedUntil = copyTime(a.LockedUntil)
	c.ResetTokenExpires = copyTime(a.ResetTokenExpires)
	c.VerificationToken = copyString(a.VerificationToken)
	c.ResetToken = copyString(a.ResetToken)
	return &c
}

// Public returns the view of the account that may be shown to its owner.
func (a *Account) Public() *PublicUser {
	return &PublicUser{
		ID:         a.ID,
		Email:      a.Email,
		IsVerified: a.IsVerified,
		CreatedAt:  a.CreatedAt,
		LastLogin:  copyTime(a.LastLogin),
	}
}

// PublicUser is the client-facing projection of an Account.
type PublicUser struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	IsVerified bool       `json:"is_verified"`
	CreatedAt  time.Time  `json:"created_at"`
	LastLogin  *time.Time `json:"last_login"`
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
