package embedding

import (
	"context"
	"time"
)

// Policy is an explicit retry schedule for embedding calls: at most
// MaxAttempts tries with exponential backoff between them, retrying only
// errors the Retryable predicate accepts. Permanent failures propagate on
// the first attempt.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Retryable   func(error) bool
}

// DefaultPolicy returns the production schedule: 3 attempts, exponential
// backoff starting at 2s and capped at 10s.
func DefaultPolicy(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    10 * time.Second,
		Retryable:   retryable,
	}
}

// Do runs fn under the policy. The sleep between attempts is cancellable via
// ctx; a cancelled context returns ctx.Err() rather than the last call error.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			if serr := sleepWithContext(ctx, p.Delay(attempt-1)); serr != nil {
				return serr
			}
		}
		err = fn()
		if err == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return err
		}
	}
	return err
}

// Delay returns the backoff before the retry following attempt n (0-indexed).
func (p Policy) Delay(attempt int) time.Duration {
	delay := p.BaseDelay
	for range attempt {
		delay *= 2
	}
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// sleepWithContext sleeps for d, but returns early if ctx is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
