package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// acquireScript implements spec.md §4.1's algorithm as a single atomic
// server-side script (EVAL), the "critical correctness lever" spec.md §9
// calls out: a naive read-modify-write would allow concurrent workers to
// double-spend tokens. KEYS[1] is the bucket hash key; ARGV are capacity,
// refill rate, current unix-seconds time, and the TTL in seconds.
//
// Returns 1 (GRANTED) or 0 (DENIED).
var acquireScript = redis.NewScript(`
local bucket = KEYS[1]
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local tokens = tonumber(redis.call('HGET', bucket, 'tokens'))
local lastRefill = tonumber(redis.call('HGET', bucket, 'last_refill'))

if tokens == nil or lastRefill == nil then
  tokens = capacity
  lastRefill = now
end

local elapsed = now - lastRefill
if elapsed < 0 then
  elapsed = 0
end

tokens = tokens + elapsed * rate
if tokens > capacity then
  tokens = capacity
end

local granted = 0
if tokens >= 1 then
  tokens = tokens - 1
  granted = 1
end

redis.call('HSET', bucket, 'tokens', tostring(tokens), 'last_refill', tostring(now))
redis.call('EXPIRE', bucket, ttl)

return granted
`)

// RateLimiter coordinates N concurrent workers against a shared per-second
// token bucket stored in the broker, per spec.md §4.1.
type RateLimiter struct {
	broker   *Broker
	capacity float64
	rate     float64
}

// NewRateLimiter builds a limiter sharing the given capacity/refill rate
// across every caller that acquires against the same broker. Default
// capacity 8, refill rate 8/s per spec.md §4.1 rationale (upstream cap is
// 600/min == 10/s; 8/s absorbs jitter).
func NewRateLimiter(b *Broker, capacity, rate float64) *RateLimiter {
	return &RateLimiter{broker: b, capacity: capacity, rate: rate}
}

// ErrScriptFailed marks a script-evaluation error as fatal per spec.md §4.1
// ("Script evaluation errors: fatal -- misconfiguration, not runtime").
var ErrScriptFailed = errors.New("rate limiter script evaluation failed")

const acquireBackoff = 40 * time.Millisecond

// Acquire blocks until the caller holds one token, honoring any active
// cooldown by sleeping exactly its remaining TTL before checking again
// (spec.md §4.1: "no fixed-interval polling"). It returns nil once a token
// has been granted; otherwise it returns the context's error, a broker
// error, or an error wrapping ErrScriptFailed.
func (l *RateLimiter) Acquire(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		cooldown, err := l.broker.CooldownRemaining(ctx)
		if err != nil {
			return fmt.Errorf("check cooldown: %w", err)
		}
		if cooldown > 0 {
			if err := sleepCtx(ctx, cooldown); err != nil {
				return err
			}
			continue
		}

		granted, err := l.tryAcquire(ctx)
		if err != nil {
			return err
		}
		if granted {
			return nil
		}

		if err := sleepCtx(ctx, acquireBackoff); err != nil {
			return err
		}
	}
}

func (l *RateLimiter) tryAcquire(ctx context.Context) (bool, error) {
	now := float64(time.Now().UnixNano()) / 1e9
	res, err := acquireScript.Run(ctx, l.broker.Client, []string{keyBucket},
		l.capacity, l.rate, now, int(bucketTTL.Seconds())).Result()
	if err != nil {
		// Only an error reply from Redis itself means the script is broken;
		// connection failures and cancellation are ordinary broker errors.
		var replyErr redis.Error
		if errors.As(err, &replyErr) {
			return false, fmt.Errorf("%w: %v", ErrScriptFailed, err)
		}
		return false, fmt.Errorf("run acquire script: %w", err)
	}

	granted, ok := res.(int64)
	if !ok {
		return false, fmt.Errorf("%w: unexpected script reply %v", ErrScriptFailed, res)
	}
	return granted == 1, nil
}

// NotifyThrottled installs the shared cooldown the first time it is called
// while no cooldown is active; a concurrent throttle signal from another
// worker does not extend it (spec.md §4.1: "the first throttle wins").
func (l *RateLimiter) NotifyThrottled(ctx context.Context) error {
	if err := l.broker.Client.SetNX(ctx, keyCooldown, "1", cooldownTTL).Err(); err != nil {
		return fmt.Errorf("set cooldown: %w", err)
	}
	return nil
}

// CooldownRemaining returns the cooldown key's remaining TTL, or zero if
// absent (spec.md §6 broker surface requires PTTL).
func (b *Broker) CooldownRemaining(ctx context.Context) (time.Duration, error) {
	ttl, err := b.Client.PTTL(ctx, keyCooldown).Result()
	if err != nil {
		return 0, err
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
