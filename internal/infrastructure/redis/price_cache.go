package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"tavern-bot/internal/domain"
)

const priceCacheTTL = 15 * time.Minute

type RedisPriceCache struct {
	client *redis.Client
}

func NewRedisPriceCache(client *redis.Client) *RedisPriceCache {
	return &RedisPriceCache{client: client}
}

func (r *RedisPriceCache) GetItem(ctx context.Context, key string) (*domain.PricedItem, error) {
	cacheKey := fmt.Sprintf("item:%s", key)

	result, err := r.client.HGetAll(ctx, cacheKey).Result()
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}

	average, err := strconv.ParseInt(result["average_cost"], 10, 64)
	if err != nil {
		return nil, err
	}
	low, err := strconv.ParseInt(result["low_cost"], 10, 64)
	if err != nil {
		return nil, err
	}
	high, err := strconv.ParseInt(result["high_cost"], 10, 64)
	if err != nil {
		return nil, err
	}

	return &domain.PricedItem{
		Key:         key,
		Category:    result["category"],
		AverageCost: average,
		LowCost:     low,
		HighCost:    high,
		Restricted:  result["restricted"] == "1",
	}, nil
}

func (r *RedisPriceCache) SetItem(ctx context.Context, item *domain.PricedItem) error {
	cacheKey := fmt.Sprintf("item:%s", item.Key)

	restricted := "0"
	if item.Restricted {
		restricted = "1"
	}

	if err := r.client.HSet(ctx, cacheKey,
		"category", item.Category,
		"average_cost", strconv.FormatInt(item.AverageCost, 10),
		"low_cost", strconv.FormatInt(item.LowCost, 10),
		"high_cost", strconv.FormatInt(item.HighCost, 10),
		"restricted", restricted,
	).Err(); err != nil {
		return err
	}

	return r.client.Expire(ctx, cacheKey, priceCacheTTL).Err()
}

func (r *RedisPriceCache) Invalidate(ctx context.Context, key string) error {
	return r.client.Del(ctx, fmt.Sprintf("item:%s", key)).Err()
}
