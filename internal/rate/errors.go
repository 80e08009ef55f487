package rate

import "errors"

var (
	// ErrRateLimited reports a counter past its window budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps any Redis failure while counting.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
