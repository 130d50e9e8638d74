package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const denylistPrefix = "denylist:"

// Denylist holds access tokens invalidated by logout until their natural
// expiry. Keys carry a TTL equal to the token's remaining lifetime, so the
// set never outgrows the set of still-live tokens.
type Denylist struct {
	client *redis.Client
}

func NewDenylist(client *redis.Client) *Denylist {
	return &Denylist{client: client}
}

func (d *Denylist) InvalidateToken(ctx context.Context, token string, expiration time.Duration) error {
	if expiration <= 0 {
		return nil
	}
	return d.client.Set(ctx, denylistPrefix+token, "invalidated", expiration).Err()
}

func (d *Denylist) IsTokenInvalidated(ctx context.Context, token string) (bool, error) {
	result, err := d.client.Get(ctx, denylistPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return result == "invalidated", nil
}
