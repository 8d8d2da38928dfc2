package utils

import (
	"context"
	"time"
)

var sleep = time.Sleep

// WaitFor pauses for the given duration, returning early with the context's
// error when it is cancelled first. Backoff delays between scoring attempts go
// through here so cancellation cuts a pause short.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sleep(d)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
