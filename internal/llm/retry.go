package llm

import (
	"context"
	"errors"
	"math"
	"time"
)

// RetryPolicy waits BaseDelay * Multiplier^attempt after each failed attempt.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, Multiplier: 1.5}
}

// Backoff returns the wait after the given zero-based failed attempt.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	m := p.Multiplier
	if m <= 0 {
		m = 1.5
	}
	return time.Duration(float64(p.BaseDelay) * math.Pow(m, float64(attempt)))
}

// Retry calls fn until it succeeds, returns a non-retryable error, the
// attempts run out or ctx is done. Only ctx stops retries; a timeout of a
// single attempt is retried. It returns the number of calls made.
func Retry(ctx context.Context, p RetryPolicy, fn func(ctx context.Context) error) (int, error) {
	limit := p.MaxAttempts
	if limit <= 0 {
		limit = 1
	}

	var err error
	for attempt := 0; attempt < limit; attempt++ {
		if err = fn(ctx); err == nil {
			return attempt + 1, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			if !errors.Is(err, ctxErr) {
				err = errors.Join(ctxErr, err)
			}
			return attempt + 1, err
		}
		if !retryable(err) || attempt == limit-1 {
			return attempt + 1, err
		}

		timer := time.NewTimer(p.Backoff(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return attempt + 1, ctx.Err()
		}
	}
	return limit, err
}

// retryable classifies an attempt's error. Timeouts, including an
// http.Client timeout surfacing as context.DeadlineExceeded, are retryable.
func retryable(err error) bool {
	if errors.Is(err, ErrMissingAPIKey) || errors.Is(err, ErrInvalidResponse) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return true
}
