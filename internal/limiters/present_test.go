package limiters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestPresentLimiterPerSubject(t *testing.T) {
	_, rdb := newTestRedis(t)
	l := NewPresentLimiter(rdb, PresentConfig{MaxPresentations: 2, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.Enforce(ctx, "u1", ""); err != nil {
			t.Fatalf("presentation %d: %v", i, err)
		}
	}
	if err := l.Enforce(ctx, "u1", ""); !errors.Is(err, ErrPresentRateLimited) {
		t.Fatalf("expected ErrPresentRateLimited, got %v", err)
	}
	if err := l.Enforce(ctx, "u2", ""); err != nil {
		t.Fatalf("other subjects must be independent: %v", err)
	}
}

func TestPresentLimiterIPThrottle(t *testing.T) {
	_, rdb := newTestRedis(t)
	l := NewPresentLimiter(rdb, PresentConfig{MaxPresentations: 1, Window: time.Minute, EnableIPThrottle: true})
	ctx := context.Background()

	if err := l.Enforce(ctx, "u1", "10.0.0.1"); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := l.Enforce(ctx, "u2", "10.0.0.1"); !errors.Is(err, ErrPresentRateLimited) {
		t.Fatalf("expected shared IP to be limited, got %v", err)
	}
}

func TestPresentLimiterReset(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewPresentLimiter(rdb, PresentConfig{MaxPresentations: 1, Window: time.Minute, KeyPrefix: "t"})
	ctx := context.Background()

	_ = l.Enforce(ctx, "u1", "")
	if !mr.Exists("t:pl:u1") {
		t.Fatal("expected prefixed subject key")
	}
	if err := l.Reset(ctx, "u1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := l.Enforce(ctx, "u1", ""); err != nil {
		t.Fatalf("expected allowance after reset, got %v", err)
	}
}

func TestPresentLimiterNilAndRedisDown(t *testing.T) {
	var l *PresentLimiter
	if err := l.Enforce(context.Background(), "u", ""); err != nil {
		t.Fatalf("nil limiter must allow: %v", err)
	}

	mr, rdb := newTestRedis(t)
	live := NewPresentLimiter(rdb, PresentConfig{MaxPresentations: 1, Window: time.Minute})
	mr.Close()
	if err := live.Enforce(context.Background(), "u", ""); !errors.Is(err, ErrPresentRedisUnavailable) {
		t.Fatalf("expected ErrPresentRedisUnavailable, got %v", err)
	}
}
