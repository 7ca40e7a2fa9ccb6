// Package revocation keeps a denylist of token ids that were logged out
// before they expired.
package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revoker records and checks revoked token ids.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RedisDenylist stores one key per revoked token. Keys expire together with
// the token so the list never outgrows the set of live tokens.
type RedisDenylist struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisDenylist(rdb redis.UniversalClient, prefix string) *RedisDenylist {
	return &RedisDenylist{rdb: rdb, prefix: prefix, now: time.Now}
}

func (d *RedisDenylist) key(tokenID string) string {
	return d.prefix + ":revoked:" + tokenID
}

func (d *RedisDenylist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(d.now())
	if ttl <= 0 {
		// already dead, nothing to remember
		return nil
	}
	if err := d.rdb.Set(ctx, d.key(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.rdb.Exists(ctx, d.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return n > 0, nil
}

// NewRedisClient connects to addr and pings it.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping error: %w", err)
	}
	return rdb, nil
}
