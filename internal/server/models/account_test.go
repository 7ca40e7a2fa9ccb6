package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/lockout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccount_CloneIsDeep(t *testing.T) {
	now := time.Now()
	tok := "abc"
	a := &Account{ID: "a1", LockedUntil: &now, ResetToken: &tok}

	c := a.Clone()
	*c.LockedUntil = now.Add(time.Hour)
	*c.ResetToken = "changed"

	assert.Equal(t, now, *a.LockedUntil)
	assert.Equal(t, "abc", *a.ResetToken)
}

func TestAccount_LockoutRoundTrip(t *testing.T) {
	until := time.Now().Add(time.Minute)
	a := &Account{}
	a.SetLockout(lockout.State{FailedAttempts: 5, LockedUntil: &until})

	assert.Equal(t, 5, a.FailedLoginAttempts)
	assert.Equal(t, lockout.State{FailedAttempts: 5, LockedUntil: &until}, a.Lockout())
}

func TestAccount_PublicHidesSecrets(t *testing.T) {
	tok := "secret-token"
	a := &Account{ID: "a1", Email: "user@example.com", PasswordHash: "$2a$04$hash", VerificationToken: &tok}

	b, err := json.Marshal(a.Public())
	require.NoError(t, err)
	assert.NotContains(t, string(b), "hash")
	assert.NotContains(t, string(b), tok)
	assert.Contains(t, string(b), `"email":"user@example.com"`)

	raw, err := json.Marshal(a)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "$2a$04$hash")
	assert.NotContains(t, string(raw), tok)
}
