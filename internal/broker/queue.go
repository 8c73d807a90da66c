package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"weathertelemetry/internal/models"
)

// EnqueueCycle implements spec.md §4.2's "per cycle" steps 1-4 as a single
// pipelined batch: increment the cycle id, record the start timestamp,
// delete the stale queue, and push the full catalog. Workers never observe
// a partially-refreshed queue because all four commands travel in one
// pipeline (spec.md: "Steps 2-4 are issued as one pipelined batch").
func (b *Broker) EnqueueCycle(ctx context.Context, catalog []models.Location) (models.Cycle, error) {
	nowMS := time.Now().UnixMilli()

	payloads := make([]interface{}, len(catalog))
	for i, loc := range catalog {
		data, err := json.Marshal(loc)
		if err != nil {
			return models.Cycle{}, fmt.Errorf("marshal location %s: %w", loc.Name, err)
		}
		payloads[i] = data
	}

	var idCmd *redis.IntCmd
	_, err := b.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		idCmd = pipe.Incr(ctx, KeyCycleID)
		pipe.Set(ctx, KeyCycleStartMS, nowMS, 0)
		pipe.Del(ctx, KeyQueue)
		if len(payloads) > 0 {
			pipe.LPush(ctx, KeyQueue, payloads...)
		}
		return nil
	})
	if err != nil {
		return models.Cycle{}, fmt.Errorf("enqueue cycle: %w", err)
	}

	return models.Cycle{ID: idCmd.Val(), StartMS: nowMS}, nil
}

// PopJob blocks up to timeout for one location off the work queue. A nil
// Location with a nil error means the timeout elapsed with nothing to pop
// (spec.md §4.3 step 1: "empty return -> retry").
func (b *Broker) PopJob(ctx context.Context, timeout time.Duration) (*models.Location, error) {
	res, err := b.Client.BRPop(ctx, timeout, KeyQueue).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop job: %w", err)
	}

	// BRPop returns [key, value]; we only pushed one key.
	if len(res) != 2 {
		return nil, fmt.Errorf("pop job: unexpected reply shape %v", res)
	}

	var loc models.Location
	if err := json.Unmarshal([]byte(res[1]), &loc); err != nil {
		return nil, fmt.Errorf("pop job: decode payload: %w", err)
	}
	return &loc, nil
}

// QueueDepth reports the number of locations still waiting to be popped.
// Polled by the fetcher binary to feed the queue depth gauge.
func (b *Broker) QueueDepth(ctx context.Context) (int64, error) {
	n, err := b.Client.LLen(ctx, KeyQueue).Result()
	if err != nil {
		return 0, fmt.Errorf("queue depth: %w", err)
	}
	return n, nil
}
