package fetch

import (
	"testing"
	"time"
)

// fakeClock is an adjustable time source.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	clock := newClock()
	b := NewBreaker(5, 10*time.Minute, clock.now)

	for i := 0; i < 4; i++ {
		if allowed, _ := b.Allow(); !allowed {
			t.Fatalf("call %d should be allowed while closed", i)
		}
		b.RecordFailure()
		if b.State() != StateClosed {
			t.Fatalf("breaker opened after %d failures, threshold is 5", i+1)
		}
	}

	b.Allow()
	b.RecordFailure() // fifth consecutive failure
	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open after 5 failures", b.State())
	}
	if allowed, _ := b.Allow(); allowed {
		t.Error("open breaker must reject calls")
	}
	wantUntil := clock.t.Add(10 * time.Minute)
	if !b.OpenUntil().Equal(wantUntil) {
		t.Errorf("OpenUntil = %v, want %v", b.OpenUntil(), wantUntil)
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(3, time.Minute, newClock().now)

	b.Allow()
	b.RecordFailure()
	b.Allow()
	b.RecordFailure()
	b.Allow()
	b.RecordSuccess()

	// Two more failures must not trip it: the streak restarted.
	b.Allow()
	b.RecordFailure()
	b.Allow()
	b.RecordFailure()
	if b.State() != StateClosed {
		t.Fatalf("state = %s, want closed after streak reset", b.State())
	}
}

func TestBreakerHalfOpenAdmitsSingleProbe(t *testing.T) {
	clock := newClock()
	b := NewBreaker(1, 10*time.Minute, clock.now)

	b.Allow()
	b.RecordFailure()
	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open", b.State())
	}

	clock.advance(5 * time.Minute)
	if allowed, _ := b.Allow(); allowed {
		t.Fatal("breaker admitted a call before the cool-down elapsed")
	}

	clock.advance(6 * time.Minute)
	allowed, probe := b.Allow()
	if !allowed || !probe {
		t.Fatalf("Allow() = (%v, %v), want one probe after cool-down", allowed, probe)
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %s, want half_open", b.State())
	}

	// Only one probe at a time.
	if allowed, _ := b.Allow(); allowed {
		t.Fatal("half-open breaker admitted a second call")
	}
}

func TestBreakerProbeSuccessCloses(t *testing.T) {
	clock := newClock()
	b := NewBreaker(1, time.Minute, clock.now)

	b.Allow()
	b.RecordFailure()
	clock.advance(2 * time.Minute)
	b.Allow()
	b.RecordSuccess()

	if b.State() != StateClosed {
		t.Fatalf("state = %s, want closed after successful probe", b.State())
	}
	if allowed, probe := b.Allow(); !allowed || probe {
		t.Errorf("Allow() = (%v, %v), want normal closed admission", allowed, probe)
	}
}

func TestBreakerProbeFailureReopens(t *testing.T) {
	clock := newClock()
	b := NewBreaker(3, time.Minute, clock.now)

	for i := 0; i < 3; i++ {
		b.Allow()
		b.RecordFailure()
	}
	clock.advance(2 * time.Minute)
	b.Allow()         // probe
	b.RecordFailure() // one probe failure, not three

	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open after failed probe", b.State())
	}
	wantUntil := clock.t.Add(time.Minute)
	if !b.OpenUntil().Equal(wantUntil) {
		t.Errorf("OpenUntil = %v, want new cool-down %v", b.OpenUntil(), wantUntil)
	}
}

func TestBreakerSeedOpen(t *testing.T) {
	clock := newClock()
	b := NewBreaker(5, time.Minute, clock.now)

	until := clock.t.Add(30 * time.Minute)
	b.SeedOpen(until)
	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open after seeding", b.State())
	}
	if allowed, _ := b.Allow(); allowed {
		t.Error("seeded breaker must reject calls until the cool-down passes")
	}

	// Expired seeds are ignored.
	b2 := NewBreaker(5, time.Minute, clock.now)
	b2.SeedOpen(clock.t.Add(-time.Minute))
	if b2.State() != StateClosed {
		t.Fatalf("state = %s, want closed for an expired seed", b2.State())
	}
}
