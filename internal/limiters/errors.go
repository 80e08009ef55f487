package limiters

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/goCaptcha/internal/rate"
)

func mapRateErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		return ErrPresentRateLimited
	case errors.Is(err, rate.ErrRedisUnavailable):
		return fmt.Errorf("%w: %v", ErrPresentRedisUnavailable, err)
	default:
		return err
	}
}
