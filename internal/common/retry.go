package common

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMaxAttemptsExceeded is returned when all retry attempts are exhausted
	ErrMaxAttemptsExceeded = errors.New("max retry attempts exceeded")
	// ErrRetryCancelled is returned when the context is cancelled during retry
	ErrRetryCancelled = errors.New("retry cancelled")
)

// RetryConfig configures retry behavior with linear backoff
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial attempt)
	MaxAttempts int
	// Delay is the backoff unit; attempt n waits n*Delay before the next try
	Delay time.Duration
	// MaxDelay caps the computed backoff
	MaxDelay time.Duration
	// IsRetryable determines if an error should be retried. Nil retries every error.
	IsRetryable func(error) bool
}

// DefaultRetryConfig returns a retry configuration suitable for transient I/O failures
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Delay:       1 * time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// Retry executes fn until it succeeds, the attempts are exhausted, or the
// context is cancelled. Backoff grows linearly: the wait after attempt n is
// n*Delay, capped at MaxDelay.
func Retry(ctx context.Context, config RetryConfig, fn func() error) error {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.Delay <= 0 {
		config.Delay = 1 * time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}

	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		// Check context cancellation
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrRetryCancelled, ctx.Err())
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if config.IsRetryable != nil && !config.IsRetryable(err) {
			return err
		}

		// Don't sleep after the last attempt
		if attempt < config.MaxAttempts {
			backoff := time.Duration(attempt) * config.Delay
			if backoff > config.MaxDelay {
				backoff = config.MaxDelay
			}

			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrRetryCancelled, ctx.Err())
			case <-time.After(backoff):
			}
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrMaxAttemptsExceeded, config.MaxAttempts, lastErr)
}
