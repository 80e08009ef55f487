package limiters

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goCaptcha/internal/rate"
	"github.com/redis/go-redis/v9"
)

var (
	ErrPresentRateLimited      = errors.New("presentation rate limited")
	ErrPresentRedisUnavailable = errors.New("presentation limiter redis unavailable")
)

type PresentConfig struct {
	MaxPresentations int
	Window           time.Duration
	EnableIPThrottle bool
	KeyPrefix        string
}

// PresentLimiter caps how many challenges one subject (and optionally one IP)
// may be shown per window.
type PresentLimiter struct {
	window *rate.Window
	config PresentConfig
}

func NewPresentLimiter(redisClient redis.UniversalClient, cfg PresentConfig) *PresentLimiter {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "gc"
	}
	return &PresentLimiter{
		window: rate.NewWindow(redisClient, cfg.MaxPresentations, cfg.Window),
		config: cfg,
	}
}

// Enforce records one presentation for subjectID and ip.
func (l *PresentLimiter) Enforce(ctx context.Context, subjectID, ip string) error {
	if l == nil {
		return nil
	}
	if err := l.hit(ctx, l.subjectKey(subjectID)); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.hit(ctx, l.ipKey(ip)); err != nil {
			return err
		}
	}
	return nil
}

// Reset forgets the subject's presentations, used after a solved challenge.
func (l *PresentLimiter) Reset(ctx context.Context, subjectID string) error {
	if l == nil {
		return nil
	}
	if err := l.window.Reset(ctx, l.subjectKey(subjectID)); err != nil {
		return mapRateErr(err)
	}
	return nil
}

func (l *PresentLimiter) hit(ctx context.Context, key string) error {
	return mapRateErr(l.window.Hit(ctx, key))
}

func (l *PresentLimiter) subjectKey(subjectID string) string {
	return l.config.KeyPrefix + ":pl:" + subjectID
}

func (l *PresentLimiter) ipKey(ip string) string {
	return l.config.KeyPrefix + ":plip:" + ip
}
