package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrLockHeld means another session for the subject holds the lock.
	ErrLockHeld = errors.New("session lock held")
	// ErrLockRedisUnavailable wraps Redis failures.
	ErrLockRedisUnavailable = errors.New("session lock redis unavailable")
)

// releaseScript deletes the key only if it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SessionLock enforces one live challenge session per subject across every
// engine instance sharing the Redis deployment.
type SessionLock struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewSessionLock returns a lock whose entries expire after ttl, which should
// exceed the longest possible session.
func NewSessionLock(redisClient redis.UniversalClient, prefix string, ttl time.Duration) *SessionLock {
	if prefix == "" {
		prefix = "gc"
	}
	return &SessionLock{
		redis:  redisClient,
		prefix: prefix,
		ttl:    ttl,
	}
}

// AcquireFor stores token as the owner of subjectID's lock for ttl. ttl <= 0
// falls back to the lock's default.
func (l *SessionLock) AcquireFor(ctx context.Context, subjectID, token string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = l.ttl
	}
	ok, err := l.redis.SetNX(ctx, l.key(subjectID), token, ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLockRedisUnavailable, err)
	}
	if !ok {
		return ErrLockHeld
	}
	return nil
}

// Release drops the lock if token still owns it. Releasing a lock that
// expired or was taken over is not an error.
func (l *SessionLock) Release(ctx context.Context, subjectID, token string) error {
	if err := releaseScript.Run(ctx, l.redis, []string{l.key(subjectID)}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrLockRedisUnavailable, err)
	}
	return nil
}

// Holder returns the token currently owning subjectID's lock, or "".
func (l *SessionLock) Holder(ctx context.Context, subjectID string) (string, error) {
	v, err := l.redis.Get(ctx, l.key(subjectID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("%w: %v", ErrLockRedisUnavailable, err)
	}
	return v, nil
}

func (l *SessionLock) key(subjectID string) string {
	return l.prefix + ":lock:" + subjectID
}
