package fetcher

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"weathertelemetry/internal/analytics"
	"weathertelemetry/internal/broker"
	"weathertelemetry/internal/fetchclient"
	"weathertelemetry/internal/models"
)

func newTestBroker(t *testing.T) *broker.Broker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return &broker.Broker{Client: client}
}

type stubFetcher struct {
	obs models.Observation
	err error
}

func (s stubFetcher) Fetch(context.Context, models.Location) (models.Observation, error) {
	return s.obs, s.err
}

func TestSecondOffsetClampsNegativeToZero(t *testing.T) {
	t.Parallel()

	cycleStart := time.Now()
	earlier := cycleStart.Add(-5 * time.Second)
	if got := secondOffset(cycleStart.UnixMilli(), earlier); got != 0 {
		t.Fatalf("secondOffset with fetch before cycle start = %d, want 0", got)
	}
}

func TestSecondOffsetComputesElapsedSeconds(t *testing.T) {
	t.Parallel()

	cycleStart := time.Now()
	later := cycleStart.Add(3500 * time.Millisecond)
	if got := secondOffset(cycleStart.UnixMilli(), later); got != 3 {
		t.Fatalf("secondOffset = %d, want 3", got)
	}
}

func TestProcessRecordsSuccessInStore(t *testing.T) {
	t.Parallel()

	b := newTestBroker(t)
	ctx := context.Background()
	limiter := broker.NewRateLimiter(b, 100, 100)
	store := analytics.NewStore()
	fetch := stubFetcher{obs: models.Observation{City: "Lagos", RecordedAt: time.Now()}}

	pool := NewPool(b, limiter, fetch, store, nil, 1)
	cycle := models.Cycle{ID: 1, StartMS: time.Now().UnixMilli()}

	pool.process(ctx, 0, cycle, models.Location{Name: "Lagos"})

	bucket := store.Drain(cycle.ID, 0)
	if bucket == nil || bucket.OK != 1 {
		t.Fatalf("bucket = %+v, want one OK entry", bucket)
	}
}

func TestProcessClassifiesThrottledFailure(t *testing.T) {
	t.Parallel()

	b := newTestBroker(t)
	ctx := context.Background()
	limiter := broker.NewRateLimiter(b, 100, 100)
	store := analytics.NewStore()
	fetch := stubFetcher{err: fmt.Errorf("fetch failed: %w", fetchclient.ErrThrottled)}

	pool := NewPool(b, limiter, fetch, store, nil, 1)
	cycle := models.Cycle{ID: 1, StartMS: time.Now().UnixMilli()}

	pool.process(ctx, 0, cycle, models.Location{Name: "Lagos"})

	bucket := store.Drain(cycle.ID, 0)
	if bucket == nil || bucket.Fail != 1 {
		t.Fatalf("bucket = %+v, want one Fail entry for a throttled response", bucket)
	}
}

func TestProcessClassifiesTimeoutFailure(t *testing.T) {
	t.Parallel()

	b := newTestBroker(t)
	ctx := context.Background()
	limiter := broker.NewRateLimiter(b, 100, 100)
	store := analytics.NewStore()
	fetch := stubFetcher{err: context.DeadlineExceeded}

	pool := NewPool(b, limiter, fetch, store, nil, 1)
	cycle := models.Cycle{ID: 1, StartMS: time.Now().UnixMilli()}

	pool.process(ctx, 0, cycle, models.Location{Name: "Lagos"})

	bucket := store.Drain(cycle.ID, 0)
	if bucket == nil || bucket.Timeout != 1 {
		t.Fatalf("bucket = %+v, want one Timeout entry", bucket)
	}
}
