package util

import (
	"context"
	"time"
)

// Retry runs fn until it succeeds, up to maxAttempts times, doubling the wait
// between attempts starting from baseDelay. It exists for operations against
// a backend that may be briefly unreachable, such as the startup baseline
// pull. The last error is returned when every attempt fails; cancelling ctx
// aborts the wait and returns ctx.Err().
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	delay := baseDelay

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return err
}
