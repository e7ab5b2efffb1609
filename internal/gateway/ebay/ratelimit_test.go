package ebay

import (
	"context"
	"testing"
	"time"
)

func TestBackoffDoublesAndCaps(t *testing.T) {
	t.Parallel()
	rl := NewRateLimiter()

	if got := rl.BackoffDelay(); got != 0 {
		t.Errorf("initial backoff = %v, want 0", got)
	}

	expected := []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
	}
	for i, want := range expected {
		rl.RecordRateLimit()
		if got := rl.BackoffDelay(); got != want {
			t.Errorf("after %d 429s backoff = %v, want %v", i+1, got, want)
		}
	}

	// Pile on until the cap holds.
	for i := 0; i < 20; i++ {
		rl.RecordRateLimit()
	}
	if got := rl.BackoffDelay(); got != 5*time.Minute {
		t.Errorf("capped backoff = %v, want 5m", got)
	}

	rl.RecordSuccess()
	if got := rl.BackoffDelay(); got != 0 {
		t.Errorf("backoff after success = %v, want 0", got)
	}
}

func TestCallsRemaining(t *testing.T) {
	t.Parallel()
	rl := NewRateLimiter()

	if got := rl.CallsRemaining(); got != 5000 {
		t.Errorf("fresh limiter remaining = %d, want 5000", got)
	}
	for i := 0; i < 10; i++ {
		rl.RecordCall()
	}
	if got := rl.CallsRemaining(); got != 4990 {
		t.Errorf("remaining = %d, want 4990", got)
	}
}

func TestWaitFailsFastAtQuota(t *testing.T) {
	t.Parallel()
	rl := NewRateLimiter()
	rl.dailyLimit = 2

	rl.RecordCall()
	rl.RecordCall()

	if err := rl.Wait(context.Background()); err == nil {
		t.Error("expected quota error")
	}
}

func TestWaitHonorsContextDuringBackoff(t *testing.T) {
	t.Parallel()
	rl := NewRateLimiter()
	rl.RecordRateLimit()
	rl.RecordRateLimit()
	rl.RecordRateLimit() // 4s backoff

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := rl.Wait(ctx)
	if err == nil {
		t.Error("expected context error")
	}
	if time.Since(start) > time.Second {
		t.Error("wait did not return promptly on cancellation")
	}
}

func TestWindowPruning(t *testing.T) {
	t.Parallel()
	rl := NewRateLimiter()
	rl.window = 50 * time.Millisecond

	rl.RecordCall()
	rl.RecordCall()
	time.Sleep(80 * time.Millisecond)

	if got := rl.CallsRemaining(); got != 5000 {
		t.Errorf("remaining after window = %d, want 5000", got)
	}
}
