// Package fetchclient fetches one weather observation per location, either
// from the real open-meteo API or from a synthetic mock producer of the
// same shape. Both implementations satisfy the Fetcher interface the
// worker pool depends on.
package fetchclient

import (
	"context"

	"weathertelemetry/internal/models"
)

// Fetcher resolves one Location to an Observation, or fails. Implementations
// must not retry internally beyond what their own contract documents --
// Client retries transient upstream failures; MockFetcher fails only when
// ctx is done before its simulated latency elapses.
type Fetcher interface {
	Fetch(ctx context.Context, loc models.Location) (models.Observation, error)
}

// New returns the real HTTP-backed Fetcher, or the synthetic one when
// useMock is set, so callers never branch on the mode themselves.
func New(useMock bool, workerCount int) Fetcher {
	if useMock {
		return NewMockFetcher()
	}
	return NewClient(workerCount)
}
