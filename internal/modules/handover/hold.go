// README: Short-lived Redis hold on a vehicle while a pickup is being committed.
package handover

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"fleetrent/internal/types"
)

const holdKeyFmt = "vehicle:hold:%s"

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisHold struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisHold(client *redis.Client, ttl time.Duration) *RedisHold {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisHold{redis: client, ttl: ttl}
}

// Acquire takes the hold with SET NX PX. A hold owned by someone else yields
// ErrVehicleUnavailable.
func (h *RedisHold) Acquire(ctx context.Context, vehicleID types.ID) (func(context.Context), error) {
	key := fmt.Sprintf(holdKeyFmt, vehicleID)
	token := uuid.NewString()
	ok, err := h.redis.SetNX(ctx, key, token, h.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("vehicle hold: %w", err)
	}
	if !ok {
		return nil, types.ErrVehicleUnavailable
	}
	return func(ctx context.Context) {
		if err := releaseScript.Run(ctx, h.redis, []string{key}, token).Err(); err != nil && err != redis.Nil {
			slog.WarnContext(ctx, "vehicle hold release failed", "vehicle_id", vehicleID, "err", err)
		}
	}, nil
}
