package embedder

import (
	"context"
	"errors"
	"time"
)

// RetryConfig is the backoff policy of a provider. MaxRetries counts
// attempts, so 3 means one call and two retries.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// DefaultRetryConfig returns the policy every provider starts with
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: MaxRetries,
		BaseDelay:  InitialBackoffMs * time.Millisecond,
		MaxDelay:   MaxBackoffMs * time.Millisecond,
		Multiplier: BackoffMultiplier,
	}
}

// delay returns the wait before retry n (0-based)
func (c RetryConfig) delay(n int) time.Duration {
	d := c.BaseDelay
	for i := 0; i < n && d < c.MaxDelay; i++ {
		d = time.Duration(float64(d) * c.Multiplier)
	}
	return min(d, c.MaxDelay)
}

// permanentError marks a failure that another attempt cannot fix, such as a
// rejected request or an undecodable response.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return &permanentError{err: err}
}

// retryWithBackoff calls fn until it succeeds, returns a permanent error, the
// attempts run out or ctx is done. The last error is returned unwrapped.
func retryWithBackoff[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	attempts := max(cfg.MaxRetries, 1)

	for n := 0; ; n++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}
		if n+1 >= attempts {
			return zero, err
		}

		t := time.NewTimer(cfg.delay(n))
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, ctx.Err()
		case <-t.C:
		}
	}
}
