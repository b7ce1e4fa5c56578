package client

import (
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy controls how transient failures are retried.
//
// The n-th retry waits BaseDelay * 2^n, scaled by a uniform factor in
// [1-Jitter, 1+Jitter]. No wait exceeds MaxDelay, jitter included.
type RetryPolicy struct {
	MaxRetries uint64
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Jitter     float64
}

// DefaultRetryPolicy allows 4 attempts: 1s, 2s and 4s apart before jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		Jitter:     0.2,
	}
}

func (p RetryPolicy) backOff() backoff.BackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.BaseDelay,
		RandomizationFactor: p.Jitter,
		Multiplier:          2,
		MaxInterval:         p.MaxDelay,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()

	return backoff.WithMaxRetries(&cappedBackOff{BackOff: b, max: p.MaxDelay}, p.MaxRetries)
}

// cappedBackOff clamps every jittered delay to max.
type cappedBackOff struct {
	backoff.BackOff
	max time.Duration
}

func (b *cappedBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop || b.max <= 0 {
		return next
	}

	return min(next, b.max)
}

// IsRetryableStatus reports whether a response status is worth retrying:
// 429 Too Many Requests and every 5xx.
func IsRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || (status >= 500 && status <= 599)
}
