package infra

import (
	"context"
	"time"
)

const (
	// Standard backoff constants
	baseDelay = 1 * time.Second
	maxDelay  = 60 * time.Second
)

// CalculateBackoff returns the exponential backoff duration for a given retry count.
// Logic: baseDelay * 2^retryCount, capped at maxDelay.
// If retryCount is negative, it returns baseDelay.
func CalculateBackoff(retryCount int) time.Duration {
	if retryCount < 0 {
		return baseDelay
	}

	// 2^30 seconds is already far beyond maxDelay; cap early to avoid
	// shift overflow.
	if retryCount > 30 {
		return maxDelay
	}

	backoff := baseDelay * time.Duration(1<<retryCount)

	if backoff > maxDelay {
		return maxDelay
	}

	return backoff
}

// SleepBackoff waits out the backoff delay for retryCount, returning early
// with ctx.Err() if the context is canceled. Retry loops must use this
// rather than time.Sleep so shutdown stays observable during waits.
func SleepBackoff(ctx context.Context, retryCount int) error {
	timer := time.NewTimer(CalculateBackoff(retryCount))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
