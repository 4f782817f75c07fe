package fetch

import "time"

// State is the circuit breaker position for one source.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Breaker is the per-source fault-tolerance state machine:
// closed → open after threshold consecutive failures, open → half_open once
// the cool-down elapses, half_open → closed on probe success or back to open
// on probe failure.
//
// A Breaker is owned by the orchestrator worker for its source and is never
// shared across sources, so it needs no locking.
type Breaker struct {
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	state       State
	failures    int
	lastAttempt time.Time
	openUntil   time.Time
}

// NewBreaker creates a closed breaker. now is injectable for tests.
func NewBreaker(threshold int, cooldown time.Duration, now func() time.Time) *Breaker {
	if now == nil {
		now = time.Now
	}
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       now,
		state:     StateClosed,
	}
}

// Allow reports whether a call may proceed. The second return is true when
// the allowed call is the single half-open probe.
func (b *Breaker) Allow() (allowed bool, probe bool) {
	switch b.state {
	case StateClosed:
		b.lastAttempt = b.now()
		return true, false
	case StateOpen:
		if b.now().Before(b.openUntil) {
			return false, false
		}
		// Cool-down elapsed: admit exactly one probe.
		b.state = StateHalfOpen
		b.lastAttempt = b.now()
		return true, true
	case StateHalfOpen:
		// A probe is already in flight (or failed without a state change).
		return false, false
	}
	return false, false
}

// RecordSuccess closes the breaker and resets the failure count.
func (b *Breaker) RecordSuccess() {
	b.state = StateClosed
	b.failures = 0
}

// RecordFailure counts a failed call. A failed probe reopens immediately;
// in closed state the breaker opens once the consecutive-failure threshold
// is reached.
func (b *Breaker) RecordFailure() {
	if b.state == StateHalfOpen {
		b.open()
		return
	}
	b.failures++
	if b.failures >= b.threshold {
		b.open()
	}
}

func (b *Breaker) open() {
	b.state = StateOpen
	b.failures = 0
	b.openUntil = b.now().Add(b.cooldown)
}

// SeedOpen forces the breaker open until the given time. Used to restore
// persisted cool-downs from a previous run.
func (b *Breaker) SeedOpen(until time.Time) {
	if b.now().Before(until) {
		b.state = StateOpen
		b.openUntil = until
	}
}

// State returns the current breaker position.
func (b *Breaker) State() State { return b.state }

// OpenUntil returns the end of the current cool-down window (zero unless open).
func (b *Breaker) OpenUntil() time.Time { return b.openUntil }

// LastAttempt returns when the breaker last admitted a call.
func (b *Breaker) LastAttempt() time.Time { return b.lastAttempt }
