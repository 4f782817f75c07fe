// Package retry re-attempts transient fetch failures with exponential
// backoff and jitter. Non-transient failures (4xx, context cancellation)
// fail immediately.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/amishk599/jobradar/internal/model"
)

// FetchFunc is one attempt at a source fetch.
type FetchFunc func(ctx context.Context) ([]model.RawListing, []error, error)

// Do runs fn, retrying transient errors up to maxRetries additional times.
// baseDelay is the delay before the first retry, doubled on each subsequent
// retry with ±30% jitter; a Retry-After duration from the source takes
// precedence. Returns the attempt count alongside the last result.
func Do(ctx context.Context, fn FetchFunc, maxRetries int, baseDelay time.Duration, logger *slog.Logger) ([]model.RawListing, []error, int, error) {
	listings, partial, err := fn(ctx)
	attempts := 1
	if err == nil {
		return listings, partial, attempts, nil
	}

	if !IsTransient(err) {
		return nil, nil, attempts, err
	}

	lastErr := err
	for attempt := 1; attempt <= maxRetries; attempt++ {
		delay := backoffDelay(baseDelay, attempt, lastErr)

		logger.Warn("retrying after transient error",
			"attempt", attempt,
			"max_retries", maxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return nil, nil, attempts, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		listings, partial, err = fn(ctx)
		attempts++
		if err == nil {
			return listings, partial, attempts, nil
		}

		if !IsTransient(err) {
			return nil, nil, attempts, err
		}
		lastErr = err
	}

	return nil, nil, attempts, lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// If the error includes a Retry-After duration (HTTP 429), that takes precedence.
func backoffDelay(baseDelay time.Duration, attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	// Exponential: baseDelay * 2^(attempt-1)
	delay := baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	// Apply ±30% jitter
	jitter := float64(delay) * 0.3
	delay = time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)

	return delay
}

// IsTransient returns true if the error represents a transient failure worth
// retrying: 429, 5xx, and network-level errors. 4xx (other than 429) and
// context cancellation are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	// A single call timing out is transient; the orchestrator tags it so it
	// is distinguishable from the whole run being cancelled.
	if errors.Is(err, model.ErrCallTimeout) {
		return true
	}

	// Context cancellation — never retry.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == 429 {
			return true
		}
		if httpErr.StatusCode >= 500 {
			return true
		}
		return false
	}

	// Non-HTTP errors (network, DNS, connection resets) — retryable.
	return true
}
