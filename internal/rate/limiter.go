package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Window is a fixed-window counter family sharing one budget and length.
type Window struct {
	redis  redis.UniversalClient
	max    int
	length time.Duration
}

// NewWindow returns a counter allowing max hits per key in each window.
func NewWindow(redisClient redis.UniversalClient, max int, length time.Duration) *Window {
	return &Window{
		redis:  redisClient,
		max:    max,
		length: length,
	}
}

// Hit records one hit on key and returns ErrRateLimited once the count
// exceeds the budget. The hit is recorded either way.
func (w *Window) Hit(ctx context.Context, key string) error {
	count, err := w.incrementWithTTL(ctx, key)
	if err != nil {
		return err
	}
	if count > int64(w.max) {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the counters for keys.
func (w *Window) Reset(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := w.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (w *Window) incrementWithTTL(ctx context.Context, key string) (int64, error) {
	count, err := w.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := w.redis.Expire(ctx, key, w.length).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
