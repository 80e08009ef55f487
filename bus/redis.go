package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps subscribe and publish failures.
var ErrRedisUnavailable = errors.New("response bus redis unavailable")

// RedisSource carries responses over a Redis pub/sub channel named
// "<prefix>:responses" as JSON-encoded [Message] payloads.
type RedisSource struct {
	redis   redis.UniversalClient
	channel string
}

func NewRedisSource(redisClient redis.UniversalClient, prefix string) *RedisSource {
	if prefix == "" {
		prefix = "gc"
	}
	return &RedisSource{
		redis:   redisClient,
		channel: prefix + ":responses",
	}
}

// Channel returns the pub/sub channel name.
func (s *RedisSource) Channel() string {
	return s.channel
}

// Publish sends one response from subjectID.
func (s *RedisSource) Publish(ctx context.Context, subjectID, text string) error {
	payload, err := json.Marshal(Message{SubjectID: subjectID, Text: text})
	if err != nil {
		return err
	}
	if err := s.redis.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *RedisSource) AwaitOne(ctx context.Context, filter func(subjectID string) bool, timeout time.Duration) (string, bool, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ps := s.redis.Subscribe(waitCtx, s.channel)
	defer ps.Close()

	// Wait for the subscription confirmation so nothing published after this
	// call can be missed.
	if _, err := ps.Receive(waitCtx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", false, ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	msgs := ps.Channel()
	for {
		select {
		case raw, ok := <-msgs:
			if !ok {
				return "", false, fmt.Errorf("%w: subscription closed", ErrRedisUnavailable)
			}
			var m Message
			if err := json.Unmarshal([]byte(raw.Payload), &m); err != nil {
				log.Printf("goCaptcha: dropping malformed response on %s: %v", s.channel, err)
				continue
			}
			if filter != nil && !filter(m.SubjectID) {
				continue
			}
			return m.Text, true, nil
		case <-waitCtx.Done():
			if err := ctx.Err(); err != nil {
				return "", false, err
			}
			return "", false, nil
		}
	}
}
