// Package ratelimit throttles outbound requests with one token bucket per
// source. Sources never share a bucket, so a slow board cannot starve the
// others.
package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// Setting is a per-source rate override.
type Setting struct {
	RPS   float64
	Burst int
}

// SourceLimiter hands out and caches a token bucket per source name.
type SourceLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	defaults  Setting
	overrides map[string]Setting
}

// NewSourceLimiter creates a limiter with the given default rate. overrides
// may be nil.
func NewSourceLimiter(defaults Setting, overrides map[string]Setting) *SourceLimiter {
	return &SourceLimiter{
		limiters:  make(map[string]*rate.Limiter),
		defaults:  defaults,
		overrides: overrides,
	}
}

func (l *SourceLimiter) get(source string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters[source]; ok {
		return lim
	}

	s := l.defaults
	if o, ok := l.overrides[source]; ok {
		if o.RPS > 0 {
			s.RPS = o.RPS
		}
		if o.Burst > 0 {
			s.Burst = o.Burst
		}
	}
	if s.Burst < 1 {
		s.Burst = 1
	}

	lim := rate.NewLimiter(rate.Limit(s.RPS), s.Burst)
	l.limiters[source] = lim
	return lim
}

// Wait blocks until the source's bucket has a token or the context is done.
func (l *SourceLimiter) Wait(ctx context.Context, source string) error {
	if err := l.get(source).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait for %s: %w", source, err)
	}
	return nil
}

// Tokens reports the source's current bucket level, for run diagnostics.
func (l *SourceLimiter) Tokens(source string) float64 {
	return l.get(source).Tokens()
}
