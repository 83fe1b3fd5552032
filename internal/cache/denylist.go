package cache

import (
	"context"
	"time"
)

const denyPrefix = "session:revoked:"

// RedisDenylist marks revoked token ids until the token's own expiry, so
// revocation state never outlives the token it revokes.
type RedisDenylist struct {
	r   *RedisClient
	now func() time.Time
}

func NewRedisDenylist(r *RedisClient) *RedisDenylist {
	return &RedisDenylist{r: r, now: time.Now}
}

func (d *RedisDenylist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	return d.r.client.Set(ctx, denyPrefix+tokenID, "1", ttl).Err()
}

func (d *RedisDenylist) Revoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.r.client.Exists(ctx, denyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
