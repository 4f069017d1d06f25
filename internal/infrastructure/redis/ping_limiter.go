package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisPingLimiter gates role pings with SetNX: the first acquire inside a
// window claims the key, everyone else is refused until the TTL expires.
type RedisPingLimiter struct {
	client *redis.Client
}

func NewRedisPingLimiter(client *redis.Client) *RedisPingLimiter {
	return &RedisPingLimiter{client: client}
}

func (r *RedisPingLimiter) Acquire(ctx context.Context, guildID, roleID string, cooldown time.Duration) (bool, error) {
	key := fmt.Sprintf("ping_cooldown:%s:%s", guildID, roleID)

	claimed, err := r.client.SetNX(ctx, key, time.Now().Unix(), cooldown).Result()
	if err != nil {
		return false, err
	}
	return claimed, nil
}
