package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrCallTimeout marks a single adapter call that exceeded its per-call
// timeout while the run as a whole was still live. Unlike an overall run
// cancellation it is transient and retryable.
var ErrCallTimeout = errors.New("adapter call timed out")

// HTTPError wraps an HTTP status code so retry and breaker logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// ParseError reports a single malformed listing. It is always non-fatal:
// the record is dropped and the rest of the batch continues.
type ParseError struct {
	Source     string
	ExternalID string
	Reason     string
	Err        error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s listing %s: %s: %v", e.Source, e.ExternalID, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s listing %s: %s", e.Source, e.ExternalID, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ConfigError is fatal at startup. Invalid configuration is rejected before
// any fetch begins, never discovered mid-run.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
