package broker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimiterTryAcquireExhaustsThenRefills(t *testing.T) {
	t.Parallel()

	b := newTestBroker(t)
	ctx := context.Background()
	limiter := NewRateLimiter(b, 2, 20) // capacity 2, refills 1 token every 50ms

	for i := 0; i < 2; i++ {
		granted, err := limiter.tryAcquire(ctx)
		if err != nil {
			t.Fatalf("tryAcquire[%d]: %v", i, err)
		}
		if !granted {
			t.Fatalf("tryAcquire[%d] = denied, want granted (bucket should start full)", i)
		}
	}

	granted, err := limiter.tryAcquire(ctx)
	if err != nil {
		t.Fatalf("tryAcquire after exhaustion: %v", err)
	}
	if granted {
		t.Fatalf("tryAcquire after exhaustion = granted, want denied")
	}

	time.Sleep(80 * time.Millisecond)

	granted, err = limiter.tryAcquire(ctx)
	if err != nil {
		t.Fatalf("tryAcquire after refill wait: %v", err)
	}
	if !granted {
		t.Fatalf("tryAcquire after refill wait = denied, want granted")
	}
}

func TestNotifyThrottledFirstCallWins(t *testing.T) {
	t.Parallel()

	b := newTestBroker(t)
	ctx := context.Background()
	limiter := NewRateLimiter(b, 8, 8)

	if err := limiter.NotifyThrottled(ctx); err != nil {
		t.Fatalf("first NotifyThrottled: %v", err)
	}
	first, err := b.CooldownRemaining(ctx)
	if err != nil {
		t.Fatalf("CooldownRemaining: %v", err)
	}
	if first <= 0 {
		t.Fatalf("cooldown remaining = %v, want > 0 after first NotifyThrottled", first)
	}

	time.Sleep(30 * time.Millisecond)

	if err := limiter.NotifyThrottled(ctx); err != nil {
		t.Fatalf("second NotifyThrottled: %v", err)
	}
	second, err := b.CooldownRemaining(ctx)
	if err != nil {
		t.Fatalf("CooldownRemaining: %v", err)
	}
	if second > first {
		t.Fatalf("cooldown remaining grew from %v to %v; second NotifyThrottled must not reset the TTL", first, second)
	}
}

func TestAcquireWaitsOutActiveCooldown(t *testing.T) {
	t.Parallel()

	b := newTestBroker(t)
	ctx := context.Background()
	limiter := NewRateLimiter(b, 8, 8)

	if err := limiter.NotifyThrottled(ctx); err != nil {
		t.Fatalf("NotifyThrottled: %v", err)
	}

	shortCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()

	err := limiter.Acquire(shortCtx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Acquire during cooldown = %v, want context.DeadlineExceeded", err)
	}
}
