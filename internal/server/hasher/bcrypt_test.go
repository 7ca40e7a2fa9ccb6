package hasher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewBcrypt_CostBounds(t *testing.T) {
	tests := []struct {
		cost    int
		wantErr bool
	}{
		{3, true},
		{4, false},
		{12, false},
		{31, false},
		{32, true},
	}
	for _, tt := range tests {
		h, err := NewBcrypt(tt.cost)
		if tt.wantErr {
			assert.Error(t, err, "cost %d", tt.cost)
			continue
		}
		require.NoError(t, err, "cost %d", tt.cost)
		assert.Equal(t, tt.cost, h.Cost())
	}
}

func TestBcrypt_HashAndVerify(t *testing.T) {
	h, err := NewBcrypt(bcrypt.MinCost)
	require.NoError(t, err)

	hash, err := h.Hash("Passw0rd!")
	require.NoError(t, err)

	assert.NotContains(t, hash, "Passw0rd!")
	assert.True(t, h.Verify("Passw0rd!", hash))
	assert.False(t, h.Verify("Passw0rd?", hash))
	assert.False(t, h.Verify("", hash))

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}

func TestBcrypt_SaltsDiffer(t *testing.T) {
	h, err := NewBcrypt(bcrypt.MinCost)
	require.NoError(t, err)

	a, err := h.Hash("Passw0rd!")
	require.NoError(t, err)
	b, err := h.Hash("Passw0rd!")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, h.Verify("Passw0rd!", a))
	assert.True(t, h.Verify("Passw0rd!", b))
}

func TestBcrypt_TooLong(t *testing.T) {
	h, err := NewBcrypt(bcrypt.MinCost)
	require.NoError(t, err)

	_, err = h.Hash(strings.Repeat("a", MaxPasswordBytes+1))
	assert.ErrorIs(t, err, bcrypt.ErrPasswordTooLong)
}

func TestBcrypt_VerifyMalformedHash(t *testing.T) {
	h, err := NewBcrypt(bcrypt.MinCost)
	require.NoError(t, err)

	assert.False(t, h.Verify("Passw0rd!", "not-a-bcrypt-hash"))
}
