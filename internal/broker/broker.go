// Package broker wraps the Redis connection used as the shared broker
// described in spec.md §2 and §6: a work queue, key-value rate-limiter and
// cycle state, and an append-only stream with consumer groups. The
// construction shape (parse URL, apply pool-size overrides from the
// environment, wrap in a single struct with a Close) mirrors the teacher's
// internal/repository.Repository / pgxpool.NewWithConfig pattern, the
// closest the teacher gets to "build a pooled client around a connection
// string."
package broker

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Broker is the shared handle both the fetcher and the processor use to
// reach Redis. All of spec.md's broker-contract operations are methods on
// this type, split across queue.go, ratelimiter.go, cycle.go and stream.go.
type Broker struct {
	Client *redis.Client
}

// New parses redisURL and returns a connected Broker. Pool size can be
// overridden via REDIS_POOL_SIZE, matching the teacher's
// DB_MAX_OPEN_CONNS/DB_MAX_IDLE_CONNS override convention.
func New(redisURL string) (*Broker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	if poolStr := os.Getenv("REDIS_POOL_SIZE"); poolStr != "" {
		if pool, err := strconv.Atoi(poolStr); err == nil && pool > 0 {
			opts.PoolSize = pool
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("unable to connect to redis: %w", err)
	}

	return &Broker{Client: client}, nil
}

// Close releases the underlying connection pool.
func (b *Broker) Close() error {
	return b.Client.Close()
}
