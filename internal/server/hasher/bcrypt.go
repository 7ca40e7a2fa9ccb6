// Package hasher provides salted, slow one-way password hashing.
package hasher

import (
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// Bcrypt hashes passwords with a fixed work factor.
type Bcrypt struct {
	cost int
}

// NewBcrypt returns a hasher for the given cost, which must lie within
// bcrypt.MinCost..bcrypt.MaxCost.
func NewBcrypt(cost int) (*Bcrypt, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Bcrypt{cost: cost}, nil
}

func (b *Bcrypt) Cost() int { return b.cost }

// Hash returns an encoded hash embedding a random salt and the cost.
func (b *Bcrypt) Hash(plain string) (string, error) {
	buf := []byte(plain)
	defer common.WipeByteArray(buf)

	if len(buf) > MaxPasswordBytes {
		return "", bcrypt.ErrPasswordTooLong
	}
	h, err := bcrypt.GenerateFromPassword(buf, b.cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Verify reports whether plain matches hash. A malformed hash never matches.
func (b *Bcrypt) Verify(plain, hash string) bool {
	buf := []byte(plain)
	defer common.WipeByteArray(buf)

	return bcrypt.CompareHashAndPassword([]byte(hash), buf) == nil
}
