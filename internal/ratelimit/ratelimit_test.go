package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestWaitWithinBurstDoesNotBlock(t *testing.T) {
	l := NewSourceLimiter(Setting{RPS: 1, Burst: 3}, nil)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Wait(context.Background(), "board"); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("burst of 3 took %v, should not block", elapsed)
	}
}

func TestWaitHonorsCancellation(t *testing.T) {
	l := NewSourceLimiter(Setting{RPS: 0.01, Burst: 1}, nil)

	// Drain the single token, then the next Wait has to block.
	if err := l.Wait(context.Background(), "board"); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx, "board"); err == nil {
		t.Fatal("Wait returned nil on an exhausted bucket with a dead context")
	}
}

func TestSourcesGetIndependentBuckets(t *testing.T) {
	l := NewSourceLimiter(Setting{RPS: 0.01, Burst: 1}, nil)

	if err := l.Wait(context.Background(), "slow-board"); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	// slow-board is now empty; other-board must still be full.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx, "other-board"); err != nil {
		t.Fatalf("Wait on a fresh source blocked: %v", err)
	}
}

func TestOverridesApplyPerSource(t *testing.T) {
	l := NewSourceLimiter(Setting{RPS: 1, Burst: 1}, map[string]Setting{
		"big-board": {RPS: 100, Burst: 10},
	})

	if tokens := l.Tokens("big-board"); tokens < 9 {
		t.Errorf("Tokens(big-board) = %v, want the override burst of 10", tokens)
	}
	if tokens := l.Tokens("plain-board"); tokens > 1.5 {
		t.Errorf("Tokens(plain-board) = %v, want the default burst of 1", tokens)
	}
}

func TestZeroBurstIsClampedToOne(t *testing.T) {
	l := NewSourceLimiter(Setting{RPS: 5, Burst: 0}, nil)
	if err := l.Wait(context.Background(), "board"); err != nil {
		t.Fatalf("Wait: %v, a zero burst must still admit one call", err)
	}
}
