// Package fetcher runs the periodic enqueue scheduler and the worker pool
// that drains it, per spec.md §4.2-4.3.
package fetcher

import (
	"context"
	"log"
	"time"

	"weathertelemetry/internal/broker"
	"weathertelemetry/internal/models"
)

// Scheduler enqueues one cycle immediately on Run, then every 60s aligned
// to the wall-clock minute boundary (spec.md §4.2).
type Scheduler struct {
	broker  *broker.Broker
	catalog []models.Location
}

// NewScheduler builds a Scheduler over the given static location catalog.
func NewScheduler(b *broker.Broker, catalog []models.Location) *Scheduler {
	return &Scheduler{broker: b, catalog: catalog}
}

// Run blocks until ctx is cancelled, enqueueing a fresh cycle on start and
// then on every following minute boundary.
func (s *Scheduler) Run(ctx context.Context) {
	log.Printf("[scheduler] starting (%d locations per cycle)", len(s.catalog))

	s.enqueue(ctx)

	for {
		wait := time.Until(nextMinuteBoundary(time.Now()))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Printf("[scheduler] stopping")
			return
		case <-timer.C:
			s.enqueue(ctx)
		}
	}
}

func (s *Scheduler) enqueue(ctx context.Context) {
	cycle, err := s.broker.EnqueueCycle(ctx, s.catalog)
	if err != nil {
		log.Printf("[scheduler] enqueue cycle failed: %v", err)
		return
	}
	log.Printf("[scheduler] cycle %d started, %d locations queued", cycle.ID, len(s.catalog))
}

func nextMinuteBoundary(now time.Time) time.Time {
	return now.Truncate(time.Minute).Add(time.Minute)
}
