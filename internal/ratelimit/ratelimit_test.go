package ratelimit

import (
	"testing"
	"time"
)

func TestLimiter_NilIsAlwaysAllowed(t *testing.T) {
	var l *Limiter
	next, ok := l.Allow()
	if !ok || !next.IsZero() {
		t.Errorf("nil Limiter.Allow() = (%v, %v), want (zero, true)", next, ok)
	}
}

func TestNew_ZeroOrNegativeArgsClampToOne(t *testing.T) {
	l := New(0, 0)
	if l == nil || l.inner == nil {
		t.Fatal("New(0, 0) should still produce a usable Limiter")
	}
	if _, ok := l.Allow(); !ok {
		t.Error("first Allow() on a freshly constructed limiter should succeed")
	}
}

func TestLimiter_AllowsUpToCapacityThenBlocks(t *testing.T) {
	// capacity 1, refill 1/sec: both the per-second window and the
	// capacity-sized window admit exactly one event per second.
	l := New(1, 1)

	if _, ok := l.Allow(); !ok {
		t.Fatal("first Allow() should succeed")
	}

	next, ok := l.Allow()
	if ok {
		t.Error("second immediate Allow() should be rate limited")
	}
	if next.IsZero() {
		t.Error("a rate-limited Allow() should report a non-zero next-allowed time")
	}
	if !next.After(time.Now().Add(-time.Second)) {
		t.Errorf("next allowed time %v should be roughly 1s out", next)
	}
}

func TestLimiter_BurstUpToCapacity(t *testing.T) {
	// capacity 3, refill large enough that the per-second window isn't the
	// binding constraint within this test's short runtime; only the
	// capacity-sized window should cap the burst at 3.
	l := New(3, 1000)

	allowed := 0
	for i := 0; i < 3; i++ {
		if _, ok := l.Allow(); ok {
			allowed++
		}
	}
	if allowed != 3 {
		t.Errorf("expected all 3 burst events within capacity to be allowed, got %d", allowed)
	}
}
