package analytics

import (
	"context"
	"log"
	"math"
	"sort"
	"time"

	"weathertelemetry/internal/broker"
)

const tickInterval = 500 * time.Millisecond

// Reporter polls the broker's current cycle on a 500ms timer, drains the
// just-completed second's bucket the first time it is observed, and logs a
// single summary line (spec.md §4.7).
type Reporter struct {
	broker *broker.Broker
	store  *Store

	cumulative map[int64]*cumulativeCounts
	lastSecond map[int64]int
}

type cumulativeCounts struct {
	ok    int
	total int
}

// NewReporter builds a Reporter over the shared worker/reporter bucket Store.
func NewReporter(b *broker.Broker, store *Store) *Reporter {
	return &Reporter{
		broker:     b,
		store:      store,
		cumulative: make(map[int64]*cumulativeCounts),
		lastSecond: make(map[int64]int),
	}
}

// Run blocks until ctx is cancelled.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Reporter) tick(ctx context.Context) {
	cycle, err := r.broker.CurrentCycle(ctx)
	if err != nil {
		log.Printf("[analytics] read cycle: %v", err)
		return
	}
	if cycle.ID == 0 {
		return // no cycle has started yet
	}

	elapsedMS := time.Now().UnixMilli() - cycle.StartMS
	if elapsedMS < 1000 {
		return // the first second hasn't completed yet
	}
	completedSecond := int(elapsedMS/1000) - 1

	if last, seen := r.lastSecond[cycle.ID]; seen && last == completedSecond {
		return
	}
	r.lastSecond[cycle.ID] = completedSecond

	bucket := r.store.Drain(cycle.ID, completedSecond)
	if bucket == nil {
		bucket = &Bucket{}
	}

	cum := r.cumulative[cycle.ID]
	if cum == nil {
		cum = &cumulativeCounts{}
		r.cumulative[cycle.ID] = cum
		r.store.ReapOutsideCycle(cycle.ID)
		delete(r.cumulative, cycle.ID-1)
		delete(r.lastSecond, cycle.ID-1)
	}
	cum.ok += bucket.OK
	cum.total += bucket.OK + bucket.Fail + bucket.Timeout

	avg, p99 := latencyStats(bucket.Latencies)
	log.Printf(
		"[analytics] cycle=%d second=%d ok=%d fail=%d timeout=%d cumulative_ok=%d cumulative_total=%d avg_ms=%.1f p99_ms=%.1f",
		cycle.ID, completedSecond, bucket.OK, bucket.Fail, bucket.Timeout, cum.ok, cum.total, avg, p99,
	)
}

func latencyStats(samples []float64) (avg, p99 float64) {
	if len(samples) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range samples {
		sum += v
	}
	avg = sum / float64(len(samples))

	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	idx := int(math.Ceil(0.99*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	p99 = sorted[idx]
	return avg, p99
}
