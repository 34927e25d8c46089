package retry

// Bounded retry loop with exponential backoff.
// Delay before attempt n+1 is BaseDelay * Backoff^(n-1), clamped to MaxDelay.
// A 429 carrying Retry-After overrides the computed delay.

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type Options struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Backoff     float64

	// Retryable decides whether a failed attempt may be repeated.
	// Nil means IsRetryable.
	Retryable func(error) bool
	// Sleep waits between attempts. Nil means Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each wait, with the attempt that just failed.
	OnRetry func(attempt int, delay time.Duration, err error)
}

type HTTPError struct {
	StatusCode int
	Body       []byte
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "http error: <nil>"
	}
	if len(e.Body) == 0 {
		return fmt.Sprintf("http error (%d)", e.StatusCode)
	}
	return fmt.Sprintf("http error (%d): %s", e.StatusCode, string(e.Body))
}

// IsRetryable reports whether err is a transient HTTP failure (429, 5xx gateway errors).
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var he *HTTPError
	if errors.As(err, &he) {
		switch he.StatusCode {
		case 429, 500, 502, 503, 504:
			return true
		default:
			return false
		}
	}
	return false
}

// Always retries every error except context cancellation.
func Always(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func ParseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	layouts := []string{time.RFC1123, time.RFC1123Z, time.RFC850, time.ANSIC}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			d := time.Until(t)
			if d < 0 {
				return 0
			}
			return d
		}
	}
	return 0
}

func clamp(d, max time.Duration) time.Duration {
	if max > 0 && d > max {
		return max
	}
	return d
}

// Delay returns the wait after the given failed attempt (1-based).
func Delay(attempt int, baseDelay time.Duration, backoff float64, maxDelay time.Duration) time.Duration {
	if attempt < 1 || baseDelay <= 0 {
		return 0
	}
	if backoff <= 0 {
		backoff = 2.0
	}
	d := time.Duration(float64(baseDelay) * math.Pow(backoff, float64(attempt-1)))
	return clamp(d, maxDelay)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do runs fn up to MaxAttempts times. It returns nil on the first success,
// otherwise the last error (or ctx.Err() if the context ends first).
// The returned attempt count is the number of times fn was called.
func Do(ctx context.Context, opts Options, fn func(attempt int) error) (int, error) {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 300 * time.Millisecond
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 2.0
	}
	if opts.Retryable == nil {
		opts.Retryable = IsRetryable
	}
	if opts.Sleep == nil {
		opts.Sleep = Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		err := fn(attempt)
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if !opts.Retryable(err) || attempt == opts.MaxAttempts {
			return attempt, lastErr
		}

		sleep := Delay(attempt, opts.BaseDelay, opts.Backoff, opts.MaxDelay)

		var he *HTTPError
		if errors.As(err, &he) && he.StatusCode == 429 && he.RetryAfter > 0 {
			sleep = clamp(he.RetryAfter, opts.MaxDelay)
		}

		if opts.OnRetry != nil {
			opts.OnRetry(attempt, sleep, err)
		}
		if err := opts.Sleep(ctx, sleep); err != nil {
			return attempt, err
		}
	}

	return opts.MaxAttempts, lastErr
}
