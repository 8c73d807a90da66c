package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"weathertelemetry/internal/analytics"
	"weathertelemetry/internal/broker"
	"weathertelemetry/internal/fetchclient"
	"weathertelemetry/internal/metrics"
	"weathertelemetry/internal/metricsserver"
	"weathertelemetry/internal/models"
)

const popTimeout = 5 * time.Second

// Pool runs N identical worker loops draining the broker's queue, per
// spec.md §4.3.
type Pool struct {
	broker  *broker.Broker
	limiter *broker.RateLimiter
	fetch   fetchclient.Fetcher
	store   *analytics.Store
	health  *metricsserver.FetchHealth
	size    int
}

// NewPool builds a Pool of size workers. health may be nil, in which case
// upstream outcomes are not tracked for /healthz.
func NewPool(b *broker.Broker, limiter *broker.RateLimiter, fetch fetchclient.Fetcher, store *analytics.Store, health *metricsserver.FetchHealth, size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{broker: b, limiter: limiter, fetch: fetch, store: store, health: health, size: size}
}

// Run starts size workers and blocks until ctx is cancelled and every
// worker has returned. It returns a non-nil error only when a worker hit a
// fatal condition (spec.md §4.1: a rate limiter script failure is a
// misconfiguration, not a runtime hiccup) -- in that case Run cancels the
// remaining workers itself rather than waiting for the caller's ctx.
func (p *Pool) Run(ctx context.Context) error {
	log.Printf("[pool] starting %d workers", p.size)

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		fatal error
	)
	report := func(err error) {
		mu.Lock()
		if fatal == nil {
			fatal = err
		}
		mu.Unlock()
		cancel()
	}

	for i := 0; i < p.size; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.workerLoop(workerCtx, id, report)
		}(i)
	}
	wg.Wait()
	log.Printf("[pool] all workers stopped")
	return fatal
}

func (p *Pool) workerLoop(ctx context.Context, id int, report func(error)) {
	var cycle models.Cycle

	for {
		if ctx.Err() != nil {
			return
		}

		loc, err := p.broker.PopJob(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[worker %d] pop job: %v", id, err)
			continue
		}
		if loc == nil {
			continue // timeout elapsed, nothing queued
		}

		current, err := p.broker.CurrentCycle(ctx)
		if err != nil {
			log.Printf("[worker %d] read current cycle: %v", id, err)
			continue
		}
		if current.ID != cycle.ID {
			cycle = current
		}

		if err := p.process(ctx, id, cycle, *loc); err != nil {
			report(err)
			return
		}
	}
}

func (p *Pool) process(ctx context.Context, id int, cycle models.Cycle, loc models.Location) error {
	if err := p.limiter.Acquire(ctx); err != nil {
		if errors.Is(err, broker.ErrScriptFailed) {
			return fmt.Errorf("worker %d: rate limiter misconfigured: %w", id, err)
		}
		if ctx.Err() == nil {
			log.Printf("[worker %d] acquire token: %v", id, err)
		}
		return nil
	}

	fetchStart := time.Now()
	obs, err := p.fetch.Fetch(ctx, loc)
	second := secondOffset(cycle.StartMS, fetchStart)

	if err != nil {
		p.recordFailure(ctx, id, loc, cycle, second, err)
		return nil
	}

	if _, err := p.broker.AppendObservation(ctx, obs); err != nil {
		log.Printf("[worker %d] append observation for %s: %v", id, loc.Name, err)
		p.store.RecordFail(cycle.ID, second)
		return nil
	}

	p.store.RecordOK(cycle.ID, second, float64(time.Since(fetchStart).Milliseconds()))
	metrics.FetchSuccessTotal.Inc()
	if p.health != nil {
		p.health.RecordSuccess()
	}
	return nil
}

// recordFailure classifies the fetch error (spec.md §4.3: "classify as
// throttled, timeout, or other"), increments the matching second-bucket
// counter exactly once, and notifies the shared cooldown on throttle. The
// job is never acknowledged or re-enqueued; the next cycle retries it.
func (p *Pool) recordFailure(ctx context.Context, id int, loc models.Location, cycle models.Cycle, second int, err error) {
	if p.health != nil {
		p.health.RecordFailure()
	}
	switch {
	case errors.Is(err, fetchclient.ErrThrottled):
		p.store.RecordFail(cycle.ID, second)
		metrics.FetchThrottledTotal.Inc()
		if notifyErr := p.limiter.NotifyThrottled(ctx); notifyErr != nil {
			log.Printf("[worker %d] notify throttled: %v", id, notifyErr)
		}
		log.Printf("[worker %d] throttled fetching %s: %v", id, loc.Name, err)
	case errors.Is(err, fetchclient.ErrTimeout) || errors.Is(err, context.DeadlineExceeded):
		p.store.RecordTimeout(cycle.ID, second)
		metrics.FetchTimeoutTotal.Inc()
		log.Printf("[worker %d] timeout fetching %s: %v", id, loc.Name, err)
	default:
		p.store.RecordFail(cycle.ID, second)
		metrics.FetchFailureTotal.Inc()
		log.Printf("[worker %d] fetch %s: %v", id, loc.Name, err)
	}
}

func secondOffset(cycleStartMS int64, fetchStart time.Time) int {
	offset := (fetchStart.UnixMilli() - cycleStartMS) / 1000
	if offset < 0 {
		return 0
	}
	return int(offset)
}
