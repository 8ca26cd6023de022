// README: Redis cache of the offer selected for each UTC date.
package offer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	generationKey  = "offer:generation"
	selectedKeyFmt = "offer:selected:%d:%s"
	selectedTTL    = 5 * time.Minute
	noneMarker     = "none"
)

// RedisCache namespaces entries by a generation counter; creating an offer
// bumps the generation, which orphans every cached selection at once.
type RedisCache struct {
	redis *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{redis: client}
}

func (c *RedisCache) Get(ctx context.Context, date time.Time) (*Offer, bool, error) {
	key, err := c.key(ctx, date)
	if err != nil {
		return nil, false, err
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if val == noneMarker {
		return nil, true, nil
	}
	var o Offer
	if err := json.Unmarshal([]byte(val), &o); err != nil {
		return nil, false, err
	}
	return &o, true, nil
}

func (c *RedisCache) Set(ctx context.Context, date time.Time, o *Offer) error {
	key, err := c.key(ctx, date)
	if err != nil {
		return err
	}
	val := noneMarker
	if o != nil {
		b, err := json.Marshal(o)
		if err != nil {
			return err
		}
		val = string(b)
	}
	return c.redis.Set(ctx, key, val, selectedTTL).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	return c.redis.Incr(ctx, generationKey).Err()
}

func (c *RedisCache) key(ctx context.Context, date time.Time) (string, error) {
	gen, err := c.redis.Get(ctx, generationKey).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	return fmt.Sprintf(selectedKeyFmt, gen, DateOf(date).Format(time.DateOnly)), nil
}
