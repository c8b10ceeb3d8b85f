package transport

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// isRetryableStatus reports whether a status code is worth retrying:
// Timeout, Network, 429, 5xx. 401 is handled separately (single
// auth-refresh retry, never looped through backoff).
func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// retryAfterDelay parses a Retry-After header (seconds or HTTP-date form)
// into a duration, or zero if absent/unparseable.
func retryAfterDelay(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	if when, err := http.ParseTime(header); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return 0
}

// newBackoff builds a capped exponential backoff with jitter, bound to ctx.
func newBackoff(ctx context.Context, maxRetries uint64) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 2 * time.Minute
	return backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx)
}
