package infra

import (
	"testing"
	"time"
)

func TestRateLimiter_BurstThenDeny(t *testing.T) {
	// Two-order burst at a slow refill: the third submission in the
	// same instant must be denied.
	rl := NewRateLimiter(2, 1)

	if !rl.TryAcquire() {
		t.Error("first request should get a burst token")
	}
	if !rl.TryAcquire() {
		t.Error("second request should get a burst token")
	}
	if rl.TryAcquire() {
		t.Error("third request should be denied with the bucket empty")
	}
}

func TestRateLimiter_RefillsOverTime(t *testing.T) {
	rl := NewRateLimiter(1, 10)

	if !rl.TryAcquire() {
		t.Fatal("expected the initial token")
	}
	if rl.TryAcquire() {
		t.Error("bucket should be empty immediately after the burst")
	}

	// 120ms at 10/s accrues at least one token.
	time.Sleep(120 * time.Millisecond)

	if !rl.TryAcquire() {
		t.Error("expected a token after the refill interval")
	}
}

func TestRateLimiter_WaitPacesSubmissions(t *testing.T) {
	rl := NewRateLimiter(1, 100)

	rl.Wait() // burst token, immediate

	// The next token accrues in 10ms; Wait must block for roughly that.
	start := time.Now()
	rl.Wait()
	elapsed := time.Since(start)

	if elapsed < 5*time.Millisecond {
		t.Errorf("Wait returned after %v, expected it to block for the refill", elapsed)
	}
}

func TestRateLimiter_CapsAtBurstCapacity(t *testing.T) {
	rl := NewRateLimiter(2, 100)

	// Long idle periods must not bank more than the burst allowance.
	time.Sleep(50 * time.Millisecond)

	if !rl.TryAcquire() || !rl.TryAcquire() {
		t.Fatal("expected the full burst after idling")
	}
	if rl.TryAcquire() {
		t.Error("idle time must not accrue tokens beyond capacity")
	}
}
