package broker

import (
	"context"
	"fmt"
	"strconv"

	"weathertelemetry/internal/models"
)

// CurrentCycle reads the cycle id and start timestamp with a single MGET,
// matching spec.md §6's broker surface requirement ("MGET"). A worker calls
// this to detect a cycle boundary (spec.md §3: "a worker treats a cycle-ID
// mismatch as a cycle boundary").
func (b *Broker) CurrentCycle(ctx context.Context) (models.Cycle, error) {
	vals, err := b.Client.MGet(ctx, KeyCycleID, KeyCycleStartMS).Result()
	if err != nil {
		return models.Cycle{}, fmt.Errorf("read cycle: %w", err)
	}

	var cycle models.Cycle
	if len(vals) == 2 {
		cycle.ID = toInt64(vals[0])
		cycle.StartMS = toInt64(vals[1])
	}
	return cycle, nil
}

func toInt64(v interface{}) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
