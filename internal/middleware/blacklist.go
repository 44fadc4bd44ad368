package middleware

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisJTIBlacklist tracks revoked access token JTIs in Redis. Entries
// expire with the token itself, so the set stays bounded.
type RedisJTIBlacklist struct {
	client *redis.Client
}

func NewRedisJTIBlacklist(client *redis.Client) *RedisJTIBlacklist {
	return &RedisJTIBlacklist{client: client}
}

// RevokeJTI marks the token id as revoked until ttl elapses.
func (b *RedisJTIBlacklist) RevokeJTI(ctx context.Context, jti string, ttl time.Duration) error {
	return b.client.Set(ctx, "revoked:jti:"+jti, "1", ttl).Err()
}

// IsRevoked checks whether the token id has been revoked.
func (b *RedisJTIBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	exists, err := b.client.Exists(ctx, "revoked:jti:"+jti).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
