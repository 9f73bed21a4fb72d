package ledger

import (
	"math"
	"time"
)

// RetryStrategy decides when a failed transaction gets another attempt.
type RetryStrategy interface {
	// Delay returns the wait before the given attempt (0-indexed).
	Delay(attempt int) time.Duration

	// ShouldRetry checks if another attempt is allowed.
	ShouldRetry(attempt int) bool
}

// ExponentialBackoff implements a standard backoff strategy.
type ExponentialBackoff struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
}

// DefaultBackoff returns the standard retry policy.
// 2s, 4s, 8s, 16s, 32s (Max 60s)
func DefaultBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		InitialDelay: 2 * time.Second,
		MaxDelay:     60 * time.Second,
		MaxAttempts:  5,
	}
}

// Delay calculates delay: InitialDelay * 2^attempt
func (s *ExponentialBackoff) Delay(attempt int) time.Duration {
	delay := float64(s.InitialDelay) * math.Pow(2, float64(attempt))
	if delay > float64(s.MaxDelay) {
		return s.MaxDelay
	}
	return time.Duration(delay)
}

// ShouldRetry checks that max attempts are not exceeded.
func (s *ExponentialBackoff) ShouldRetry(attempt int) bool {
	return attempt < s.MaxAttempts
}
